package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// NewPool connects to Postgres with a bounded fibonacci backoff.
// Connection establishment is the only place in the service that retries.
func NewPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5

	var pool *pgxpool.Pool

	backoff := retry.WithMaxDuration(30*time.Second, retry.NewFibonacci(500*time.Millisecond))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		p, err := pgxpool.NewWithConfig(attemptCtx, cfg)

		if err != nil {
			return retry.RetryableError(err)
		}

		if err := p.Ping(attemptCtx); err != nil {
			p.Close()
			return retry.RetryableError(err)
		}

		pool = p
		return nil
	})

	if err != nil {
		return nil, err
	}

	return pool, nil
}
