package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// RobotsPolicy returns the stored disallow list for host:port when it was
// refreshed within maxAge. found is false when no fresh row exists.
func (s *Store) RobotsPolicy(ctx context.Context, host string, port int, maxAge time.Duration) ([]string, bool, error) {
	const statusQuery = `
		SELECT have_policy FROM robot_policies_status
		WHERE host = $1 AND port = $2 AND last_crawled_at > NOW() - make_interval(secs => $3)`
	var havePolicy bool
	err := s.db.QueryRow(ctx, statusQuery, host, port, seconds(maxAge)).Scan(&havePolicy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load robots status: %w", err)
	}
	if !havePolicy {
		return []string{}, true, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT disallowed FROM robot_policies WHERE host = $1 AND port = $2`, host, port)
	if err != nil {
		return nil, false, fmt.Errorf("load robots rules: %w", err)
	}
	defer rows.Close()
	rules := []string{}
	for rows.Next() {
		var rule string
		if err := rows.Scan(&rule); err != nil {
			return nil, false, fmt.Errorf("scan robots rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("load robots rules: %w", err)
	}
	return rules, true, nil
}

// SaveRobotsPolicy replaces the disallow list of host:port and stamps its
// freshness row.
func (s *Store) SaveRobotsPolicy(ctx context.Context, host string, port int, rules []string, havePolicy bool) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM robot_policies WHERE host = $1 AND port = $2`, host, port); err != nil {
			return fmt.Errorf("delete robots rules: %w", err)
		}
		for _, rule := range rules {
			if _, err := tx.Exec(ctx,
				`INSERT INTO robot_policies (host, port, disallowed) VALUES ($1, $2, $3)`,
				host, port, rule); err != nil {
				return fmt.Errorf("insert robots rule: %w", err)
			}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO robot_policies_status (host, port, last_crawled_at, have_policy)
			VALUES ($1, $2, NOW(), $3)
			ON CONFLICT (host, port) DO UPDATE
			SET last_crawled_at = EXCLUDED.last_crawled_at, have_policy = EXCLUDED.have_policy`,
			host, port, havePolicy)
		if err != nil {
			return fmt.Errorf("upsert robots status: %w", err)
		}
		return nil
	})
}
