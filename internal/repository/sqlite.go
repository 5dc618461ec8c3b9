package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/magefree/mage-engine-go/internal/game"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS replays (
	game_id    TEXT PRIMARY KEY,
	players    TEXT NOT NULL,
	winner     TEXT NOT NULL DEFAULT '',
	actions    INTEGER NOT NULL,
	entries    INTEGER NOT NULL,
	checksum   TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS replays_created_at_idx ON replays (created_at DESC);
`

// SQLiteStore keeps replays in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens the database file at path and creates the replay table.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create replay schema: %w", err)
	}
	logger.Info("sqlite replay store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveReplay(ctx context.Context, log *game.ActionLog, winner string) error {
	row, data, err := encodeReplay(log, winner)
	if err != nil {
		return err
	}
	players, err := json.Marshal(row.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO replays (game_id, players, winner, actions, entries, checksum, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.GameID, string(players), row.Winner, row.Actions, row.Entries, row.Checksum, data, row.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrReplayExists, row.GameID)
		}
		return fmt.Errorf("insert replay %s: %w", row.GameID, err)
	}
	s.logger.Debug("replay stored",
		zap.String("game_id", row.GameID),
		zap.Int("entries", row.Entries))
	return nil
}

func (s *SQLiteStore) LoadReplay(ctx context.Context, gameID string) (*game.ActionLog, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM replays WHERE game_id = ?", gameID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, gameID)
		}
		return nil, fmt.Errorf("load replay %s: %w", gameID, err)
	}
	return decodeReplay(gameID, data)
}

func (s *SQLiteStore) ListReplays(ctx context.Context, limit int) ([]ReplaySummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, players, winner, actions, entries, checksum, created_at
		FROM replays ORDER BY created_at DESC, game_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list replays: %w", err)
	}
	defer rows.Close()

	var out []ReplaySummary
	for rows.Next() {
		var (
			r         ReplaySummary
			players   string
			createdAt int64
		)
		if err := rows.Scan(&r.GameID, &players, &r.Winner, &r.Actions, &r.Entries, &r.Checksum, &createdAt); err != nil {
			return nil, fmt.Errorf("scan replay: %w", err)
		}
		if err := json.Unmarshal([]byte(players), &r.Players); err != nil {
			return nil, fmt.Errorf("decode players of %s: %w", r.GameID, err)
		}
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list replays: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
