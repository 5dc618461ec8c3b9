package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game"
)

var (
	ErrReplayNotFound = errors.New("replay not found")
	ErrReplayExists   = errors.New("replay already stored")
)

// ReplaySummary describes a stored replay without its log.
type ReplaySummary struct {
	GameID    string
	Players   []string
	Winner    string
	Actions   int
	Entries   int
	Checksum  string
	CreatedAt time.Time
}

// ReplayStore persists the action logs of finished games.
type ReplayStore interface {
	SaveReplay(ctx context.Context, log *game.ActionLog, winner string) error
	LoadReplay(ctx context.Context, gameID string) (*game.ActionLog, error)
	ListReplays(ctx context.Context, limit int) ([]ReplaySummary, error)
	Close() error
}

// Open returns the replay store selected by cfg. Without a database driver
// replays are written as files to replayDir.
func Open(ctx context.Context, cfg config.DatabaseConfig, replayDir string, logger *zap.Logger) (ReplayStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "postgres":
		return NewPostgresStore(ctx, cfg, logger)
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN, logger)
	case "":
		return NewFileStore(replayDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// encodeReplay marshals a log and builds its summary row.
func encodeReplay(log *game.ActionLog, winner string) (ReplaySummary, []byte, error) {
	if log == nil || log.GameID == "" {
		return ReplaySummary{}, nil, fmt.Errorf("replay has no game id")
	}
	data, err := log.Marshal()
	if err != nil {
		return ReplaySummary{}, nil, fmt.Errorf("failed to encode replay %s: %w", log.GameID, err)
	}
	sum, err := log.Checksum()
	if err != nil {
		return ReplaySummary{}, nil, fmt.Errorf("failed to checksum replay %s: %w", log.GameID, err)
	}
	return ReplaySummary{
		GameID:    log.GameID,
		Players:   playerNames(log),
		Winner:    winner,
		Actions:   len(log.Actions()),
		Entries:   log.Len(),
		Checksum:  hex.EncodeToString(sum[:]),
		CreatedAt: time.Now().UTC(),
	}, data, nil
}

func decodeReplay(gameID string, data []byte) (*game.ActionLog, error) {
	log, err := game.UnmarshalActionLog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode replay %s: %w", gameID, err)
	}
	return log, nil
}

func playerNames(log *game.ActionLog) []string {
	names := make([]string, 0, len(log.Players))
	for _, p := range log.Players {
		names = append(names, p.Name)
	}
	return names
}
