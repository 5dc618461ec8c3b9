package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS replays (
	game_id    TEXT PRIMARY KEY,
	players    TEXT[] NOT NULL,
	winner     TEXT NOT NULL DEFAULT '',
	actions    INTEGER NOT NULL,
	entries    INTEGER NOT NULL,
	checksum   TEXT NOT NULL,
	data       BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS replays_created_at_idx ON replays (created_at DESC);
`

// PostgresStore keeps replays in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects a pool and creates the replay table.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create replay schema: %w", err)
	}

	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) SaveReplay(ctx context.Context, log *game.ActionLog, winner string) error {
	row, data, err := encodeReplay(log, winner)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO replays (game_id, players, winner, actions, entries, checksum, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.GameID, row.Players, row.Winner, row.Actions, row.Entries, row.Checksum, data, row.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrReplayExists, row.GameID)
		}
		return fmt.Errorf("failed to insert replay %s: %w", row.GameID, err)
	}
	s.logger.Debug("replay stored",
		zap.String("game_id", row.GameID),
		zap.Int("entries", row.Entries))
	return nil
}

func (s *PostgresStore) LoadReplay(ctx context.Context, gameID string) (*game.ActionLog, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM replays WHERE game_id = $1", gameID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, gameID)
		}
		return nil, fmt.Errorf("failed to load replay %s: %w", gameID, err)
	}
	return decodeReplay(gameID, data)
}

func (s *PostgresStore) ListReplays(ctx context.Context, limit int) ([]ReplaySummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT game_id, players, winner, actions, entries, checksum, created_at
		FROM replays ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}
	defer rows.Close()

	var out []ReplaySummary
	for rows.Next() {
		var r ReplaySummary
		if err := rows.Scan(&r.GameID, &r.Players, &r.Winner, &r.Actions, &r.Entries, &r.Checksum, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan replay: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
