// Package postgres keeps the expedition history in PostgreSQL through pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/delve/internal/config"
)

// Pool owns the connection pool shared by the expedition repository and
// watches that the database stays reachable while delved runs.
type Pool struct {
	db   *pgxpool.Pool
	ping func(context.Context) error
}

// Open connects to the database described by cfg.
//
// Precondition: cfg must pass config.DatabaseConfig.Validate.
// Postcondition: Returns a Pool whose database answered a ping, or a non-nil error.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	p := &Pool{db: db, ping: db.Ping}
	if err := p.Health(ctx, cfg.HealthTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	return p, nil
}

// Health pings the database, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.ping(ctx)
}

// Watch pings the database every interval until ctx is done. Each failed
// ping is logged as a warning; the first success after a failure is logged
// once at info.
//
// Precondition: interval and timeout must be positive; logger must be non-nil.
// Postcondition: Returns ctx.Err() once ctx is done.
func (p *Pool) Watch(ctx context.Context, interval, timeout time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		err := p.Health(ctx, timeout)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case err != nil:
			healthy = false
			logger.Warn("database health check failed", zap.Error(err))
		case !healthy:
			healthy = true
			logger.Info("database reachable again")
		}
	}
}

// Close releases every pooled connection.
func (p *Pool) Close() {
	if p.db != nil {
		p.db.Close()
	}
}

// DB returns the pgx pool repositories query through.
func (p *Pool) DB() *pgxpool.Pool {
	return p.db
}
