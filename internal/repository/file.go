package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game"
)

// FileStore writes replays as files through a game.ReplayRecorder. It
// does not remember winners.
type FileStore struct {
	dir      string
	recorder *game.ReplayRecorder
	logger   *zap.Logger
}

func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, recorder: game.NewReplayRecorder(logger, dir), logger: logger}
}

func (s *FileStore) SaveReplay(ctx context.Context, log *game.ActionLog, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if log == nil || log.GameID == "" {
		return fmt.Errorf("replay has no game id")
	}
	if _, err := os.Stat(s.path(log.GameID)); err == nil {
		return fmt.Errorf("%w: %s", ErrReplayExists, log.GameID)
	}
	s.recorder.Record(log)
	if _, err := s.recorder.Save(log.GameID); err != nil {
		return err
	}
	return nil
}

func (s *FileStore) LoadReplay(ctx context.Context, gameID string) (*game.ActionLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log, err := s.recorder.Load(gameID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, gameID)
		}
		return nil, err
	}
	return log, nil
}

// ListReplays reads every replay file in the directory, newest first.
func (s *FileStore) ListReplays(ctx context.Context, limit int) ([]ReplaySummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read replay dir: %w", err)
	}
	var out []ReplaySummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".replay") {
			continue
		}
		gameID := strings.TrimSuffix(e.Name(), ".replay")
		log, err := s.LoadReplay(ctx, gameID)
		if err != nil {
			s.logger.Warn("skipping unreadable replay",
				zap.String("file", e.Name()),
				zap.Error(err))
			continue
		}
		row, _, err := encodeReplay(log, "")
		if err != nil {
			return nil, err
		}
		if info, err := e.Info(); err == nil {
			row.CreatedAt = info.ModTime().UTC()
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(gameID string) string {
	return filepath.Join(s.dir, gameID+".replay")
}
