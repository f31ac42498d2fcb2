package policy

import (
	"context"

	"go.uber.org/zap"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/metrics"
	"github.com/JakeFAU/gemini-search/internal/robots"
)

// RobotsRules returns the disallow list that applies to u's host. Resolution
// goes local cache, then the store if fresh, then robots.txt over the network.
// Failures never block crawling.
func (e *Engine) RobotsRules(ctx context.Context, u gemurl.URL) []string {
	key := e.hostKey(u)
	if rules, ok := e.cache.Get(key); ok {
		return rules
	}

	port := u.Port()
	if e.store != nil {
		rules, found, err := e.store.RobotsPolicy(ctx, u.Host(), port, e.cfg.PersistTTL)
		switch {
		case err != nil:
			e.logger.Warn("load robots policy", zap.String("host", key), zap.Error(err))
		case found:
			e.cache.Add(key, rules)
			return rules
		}
	}

	rules, havePolicy, err := e.fetchRobots(ctx, u)
	if err != nil {
		if geminifetcher.IsHostFailure(err) {
			e.RecordFailure(u)
		}
		e.logger.Debug("robots.txt unavailable", zap.String("host", key), zap.Error(err))
		if e.cfg.FailureMode == RobotsFailureAllow {
			return nil
		}
		rules, havePolicy = nil, false
	}

	if e.store != nil {
		// A concurrent writer doing the same work is fine.
		if err := e.store.SaveRobotsPolicy(ctx, u.Host(), port, rules, havePolicy); err != nil {
			e.logger.Warn("save robots policy", zap.String("host", key), zap.Error(err))
		}
	}
	e.cache.Add(key, rules)
	return rules
}

// fetchRobots downloads and parses robots.txt. A missing or non-text file
// yields no rules and havePolicy=false without an error.
func (e *Engine) fetchRobots(ctx context.Context, u gemurl.URL) ([]string, bool, error) {
	if e.fetcher == nil {
		return nil, false, nil
	}
	target := u.WithParam("").WithFragment("").WithPath("/robots.txt")
	resp, err := e.fetcher.Fetch(ctx, target, geminifetcher.Options{
		Timeout:         e.cfg.RobotsTimeout,
		MaxTransferTime: e.cfg.RobotsTimeout,
		MaxBytes:        e.cfg.RobotsMaxBytes,
		AcceptMIME:      []string{"text/plain"},
	})
	if err != nil {
		metrics.ObserveRobotsFetch("error")
		return nil, false, err
	}
	mime, params := geminifetcher.ParseMeta(resp.Meta)
	if resp.Status != 20 || mime != "text/plain" {
		metrics.ObserveRobotsFetch("absent")
		return nil, false, nil
	}
	metrics.ObserveRobotsFetch("parsed")
	text := geminifetcher.Decode(resp.Body, params["charset"])
	return robots.Parse(text, e.cfg.Agents), true, nil
}
