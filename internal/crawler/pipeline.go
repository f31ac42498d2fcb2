package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/metrics"
	"github.com/JakeFAU/gemini-search/internal/progress"
	"github.com/JakeFAU/gemini-search/internal/store"
)

// CrawlURL runs one URL through the pipeline. Failures are written to the
// page row and reported in the Result; they are never returned.
func (c *Crawler) CrawlURL(ctx context.Context, raw string) Result {
	start := c.clock.Now()
	res := Result{URL: raw}
	res.enter(StateQueued)

	metrics.IncInFlight()
	defer metrics.DecInFlight()

	u := gemurl.Parse(raw)
	c.emitFetch(progress.StageFetchStart, u, &res)
	c.run(ctx, u, &res)
	res.Duration = c.clock.Now().Sub(start)

	c.observe(u, &res)
	return res
}

func (c *Crawler) run(ctx context.Context, u gemurl.URL, res *Result) {
	res.enter(StateChecking)
	if !u.Valid() || u.String() != res.URL {
		res.enter(StateRejected)
		res.Err = ErrNonCanonical
		c.replaceRow(ctx, u, res.URL)
		return
	}
	if d := c.policy.ShouldCrawl(ctx, u); !d.Allowed {
		res.enter(StateRejected)
		if err := c.recordFailure(ctx, res.URL, 0, string(d.Reason)); err != nil {
			res.Err = err
		}
		return
	}

	prev, err := c.store.PageState(ctx, res.URL)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.fail(ctx, u, res, 0, fmt.Errorf("load page state: %w", err))
		return
	}
	if c.coolingDown(prev) {
		res.enter(StateSkipped)
		return
	}

	res.enter(StateFetching)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, u); err != nil {
			c.fail(ctx, u, res, 0, err)
			return
		}
	}
	opts := c.cfg.Fetch
	opts.CheckRedirect = func(target gemurl.URL) error {
		if d := c.policy.ShouldCrawl(ctx, target); !d.Allowed {
			return fmt.Errorf("%w: %s (%s)", ErrRedirectBlocked, target.String(), d.Reason)
		}
		return nil
	}
	resp, err := c.fetcher.Fetch(ctx, u, opts)
	if resp.Redirects > 0 {
		res.enter(StateRedirecting)
	}
	if err != nil {
		c.fail(ctx, u, res, 0, err)
		return
	}
	res.Status = resp.Status
	res.Bytes = len(resp.Body)

	var page content
	switch resp.Class() {
	case 1:
		page = requestInfo(resp.Meta)
	case 2:
		page, err = extract(resp, c.cfg.Protocol)
		if err != nil {
			c.fail(ctx, u, res, 0, err)
			return
		}
	default:
		c.fail(ctx, u, res, resp.Status, &StatusError{Status: resp.Status, Meta: resp.Meta})
		return
	}
	res.enter(StateParsed)

	rawHash := c.hasher.Hash(resp.Body)
	indexedHash := c.hasher.HashString(page.title + "\n" + page.body)
	if !c.cfg.ForceReindex && prev.RawHash == rawHash && prev.IndexedHash == indexedHash {
		res.enter(StateUnchanged)
		if err := c.store.RecordUnchanged(ctx, res.URL, resp.Status, resp.Meta); err != nil {
			c.fail(ctx, u, res, 0, err)
			return
		}
		res.enter(StateDone)
		return
	}

	res.enter(StateReindexing)
	if err := c.reindex(ctx, u, resp, page, rawHash, indexedHash); err != nil {
		c.fail(ctx, u, res, 0, err)
		return
	}
	res.enter(StateDone)
}

func (c *Crawler) reindex(
	ctx context.Context,
	u gemurl.URL,
	resp geminifetcher.Response,
	page content,
	rawHash, indexedHash string,
) error {
	internal, crossSite := page.links.Strings()
	update := PageUpdate{
		URL:            u.String(),
		Status:         resp.Status,
		Meta:           resp.Meta,
		ContentType:    page.mime,
		Charset:        page.charset,
		Lang:           page.lang,
		Title:          page.title,
		Body:           page.body,
		Size:           page.size,
		FeedType:       page.feedType,
		RawHash:        rawHash,
		IndexedHash:    indexedHash,
		InternalLinks:  internal,
		CrossSiteLinks: crossSite,
	}
	links := make([]Link, 0, len(page.links.Internal)+len(page.links.CrossSite))
	for _, to := range page.links.Internal {
		links = append(links, Link{From: u, To: to})
	}
	for _, to := range page.links.CrossSite {
		links = append(links, Link{From: u, To: to, CrossSite: true})
	}
	if err := c.store.SaveIndexed(ctx, update, links); err != nil {
		return fmt.Errorf("save page: %w", err)
	}

	discovered := make([]gemurl.URL, 0, len(links))
	for _, l := range links {
		if !c.policy.Admissible(l.To) || c.markSeen(l.To.String()) {
			continue
		}
		discovered = append(discovered, l.To)
	}
	n, err := c.store.InsertPages(ctx, discovered)
	if err != nil {
		return fmt.Errorf("enqueue links: %w", err)
	}
	if n > 0 {
		c.logger.Debug("discovered pages", zap.String("url", u.String()), zap.Int64("new", n))
	}
	return nil
}

// coolingDown skips pages whose proxy refused them recently.
func (c *Crawler) coolingDown(prev PageState) bool {
	if prev.LastStatus != proxyErrorCode || prev.LastCrawledAt == nil {
		return false
	}
	return c.clock.Now().Sub(*prev.LastCrawledAt) < c.cfg.ProxyErrorCooldown
}

// fail records a failed attempt, collects the page when it has been dead for
// too long and counts network trouble against the host.
func (c *Crawler) fail(ctx context.Context, u gemurl.URL, res *Result, status int, err error) {
	res.enter(StateFailed)
	res.Err = err
	c.logger.Warn("crawl failed", zap.String("url", res.URL), zap.Error(err))

	if geminifetcher.IsHostFailure(err) && u.Valid() {
		c.policy.RecordFailure(u)
	}
	_ = c.recordFailure(ctx, res.URL, status, err.Error())
}

// recordFailure stores a failed or rejected attempt and removes the page
// once it has been dead for longer than GCAfter.
func (c *Crawler) recordFailure(ctx context.Context, url string, status int, meta string) error {
	if err := c.store.RecordFailure(ctx, url, status, meta); err != nil {
		c.logger.Warn("record failure", zap.String("url", url), zap.Error(err))
		return err
	}
	deleted, err := c.store.DeleteIfDead(ctx, url, c.cfg.GCAfter)
	if err != nil {
		c.logger.Warn("collect dead page", zap.String("url", url), zap.Error(err))
		return err
	}
	if deleted {
		c.logger.Info("dead page removed", zap.String("url", url))
	}
	return nil
}

// replaceRow drops a claimed row whose key is not a canonical URL. A valid
// URL is queued again under its canonical form.
func (c *Crawler) replaceRow(ctx context.Context, u gemurl.URL, raw string) {
	if err := c.store.DeletePage(ctx, raw); err != nil {
		c.logger.Warn("delete non-canonical page", zap.String("url", raw), zap.Error(err))
		return
	}
	if !u.Valid() || !c.policy.Admissible(u) {
		c.logger.Info("non-canonical page removed", zap.String("url", raw))
		return
	}
	if _, err := c.store.InsertPages(ctx, []gemurl.URL{u}); err != nil {
		c.logger.Warn("requeue canonical page", zap.String("url", u.String()), zap.Error(err))
		return
	}
	c.logger.Info("page requeued under canonical url", zap.String("from", raw), zap.String("to", u.String()))
}

func (c *Crawler) observe(u gemurl.URL, res *Result) {
	outcome := string(res.State)
	metrics.ObserveCrawl(res.URL, outcome, res.Bytes)
	if res.State == StateSkipped || res.State == StateRejected {
		return
	}
	metrics.ObserveFetch(metrics.StatusClass(res.Status), res.Duration)
	c.emitFetch(progress.StageFetchDone, u, res)
}

func (c *Crawler) emitFetch(stage progress.Stage, u gemurl.URL, res *Result) {
	host := u.Host()
	if host == "" {
		return
	}
	evt := progress.Event{
		RunID: c.currentRun(),
		TS:    c.clock.Now().UTC(),
		Stage: stage,
		Host:  host,
		URL:   res.URL,
	}
	if stage == progress.StageFetchDone {
		evt.Pages = 1
		evt.Bytes = int64(res.Bytes)
		evt.Dur = res.Duration
		evt.StatusClass = progress.ClassifyStatus(res.Status)
		if res.Err != nil {
			evt.Note = res.Err.Error()
		}
	}
	c.emitter.Emit(evt)
}
