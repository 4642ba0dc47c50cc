// Package store is the relational persistence layer of spec §4.4/§6.2: a
// pgx/v5 connection pool, the per-entity table schemas, transactional
// block insert, and cursor-paginated historical queries. Grounded on
// original_source's fuel-streams-store db_impl.rs/store_impl.rs, adapted
// from sqlx's connection-pool options to pgxpool's equivalent knobs.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fuelstreams/internal/errs"
	"fuelstreams/internal/packet"
	"fuelstreams/pkg/config"
)

// Store wraps a pooled Postgres connection and projects records to it.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool per cfg.DB, mirroring db_impl.rs's
// create_pool: bounded max/min connections, acquire and idle timeouts, and
// a fixed application_name and statement_timeout runtime parameter.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.URL)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, errs.ReasonConnection, err, "parse db url")
	}

	if cfg.DB.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.DB.PoolSize)
	}
	if cfg.DB.MinConnections > 0 {
		poolCfg.MinConns = int32(cfg.DB.MinConnections)
	}
	if cfg.DB.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.DB.IdleTimeout
	}
	if cfg.DB.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.DB.AcquireTimeout
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "fuelstreams"
	if cfg.DB.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.DB.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, errs.ReasonConnection, err, "open db pool")
	}
	return &Store{pool: pool}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() { s.pool.Close() }

// Pool exposes the underlying pgxpool.Pool for callers (migrations,
// health checks) that need it directly.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// InsertPacket inserts one packet's row, idempotent on cursor conflict.
func (s *Store) InsertPacket(ctx context.Context, pkt packet.Packet) (bool, error) {
	return InsertPacket(ctx, s.pool, pkt)
}

// InsertBlockAtomically inserts every packet of one block in a single
// transaction (spec invariant I2: a block's rows become visible all at
// once or not at all). Any failure rolls back the whole block.
func (s *Store) InsertBlockAtomically(ctx context.Context, packets []packet.Packet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, errs.ReasonAcquire, err, "begin block transaction")
	}
	defer tx.Rollback(ctx)

	for _, pkt := range packets {
		if _, err := InsertPacket(ctx, tx, pkt); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(errs.KindPersistence, errs.ReasonCommit, err, "commit block transaction")
	}
	return nil
}

// IsHealthy pings the pool (spec §4.4: "is_healthy" operation).
func (s *Store) IsHealthy(ctx context.Context) bool {
	return s.pool.Ping(ctx) == nil
}

func blockTimeOf(unixSeconds int64) time.Time {
	return time.Unix(unixSeconds, 0).UTC()
}
