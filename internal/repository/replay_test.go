package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/cards"
)

// finishedGame plays a short game that ends with a concession.
func finishedGame(t *testing.T, id string) *game.Game {
	t.Helper()
	deck := make([]string, 15)
	for i := range deck {
		deck[i] = "Forest"
	}
	g, err := game.New(id, []game.PlayerConfig{
		{ID: "p1", Name: "Alice", Deck: deck},
		{ID: "p2", Name: "Bob", Deck: deck},
	}, cards.Default(), game.WithLogger(zap.NewNop()), game.WithSeed(7))
	require.NoError(t, err)
	require.NoError(t, g.Start())
	for range 4 {
		require.NoError(t, g.ProcessAction(game.PlayerAction{PlayerID: g.PriorityHolder(), ActionType: game.ActionPass}))
	}
	require.NoError(t, g.ProcessAction(game.PlayerAction{PlayerID: "p2", ActionType: game.ActionConcede}))
	require.Equal(t, game.StateFinished, g.State())
	return g
}

func openStores(t *testing.T) map[string]ReplayStore {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	sqliteStore, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "replays.db"), logger)
	require.NoError(t, err)
	stores := map[string]ReplayStore{
		"sqlite": sqliteStore,
		"file":   NewFileStore(filepath.Join(t.TempDir(), "replays"), logger),
	}
	if dsn := os.Getenv("MAGE_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := NewPostgresStore(ctx, config.DatabaseConfig{DSN: dsn, MaxConns: 2}, logger)
		require.NoError(t, err)
		_, err = pg.pool.Exec(ctx, "TRUNCATE replays")
		require.NoError(t, err)
		stores["postgres"] = pg
	}
	for _, s := range stores {
		t.Cleanup(func() { _ = s.Close() })
	}
	return stores
}

func TestReplayStores(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := finishedGame(t, "game-"+name)

			require.NoError(t, store.SaveReplay(ctx, g.Log(), g.Winner()))
			err := store.SaveReplay(ctx, g.Log(), g.Winner())
			assert.ErrorIs(t, err, ErrReplayExists)

			loaded, err := store.LoadReplay(ctx, g.ID())
			require.NoError(t, err)
			assert.Equal(t, g.Log().Actions(), loaded.Actions())
			assert.Equal(t, g.Log().Seed, loaded.Seed)

			replayed, err := game.Replay(loaded, cards.Default(), game.WithLogger(zap.NewNop()))
			require.NoError(t, err)
			assert.Equal(t, g.View(""), replayed.View(""))

			_, err = store.LoadReplay(ctx, "no-such-game")
			assert.ErrorIs(t, err, ErrReplayNotFound)

			list, err := store.ListReplays(ctx, 10)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, g.ID(), list[0].GameID)
			assert.Equal(t, []string{"Alice", "Bob"}, list[0].Players)
			assert.Equal(t, g.Log().Len(), list[0].Entries)
			assert.Len(t, list[0].Checksum, 64)
		})
	}
}

func TestSQLiteKeepsWinnerAndOrder(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "replays.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	for _, id := range []string{"first", "second", "third"} {
		g := finishedGame(t, id)
		require.NoError(t, store.SaveReplay(ctx, g.Log(), g.Winner()))
	}
	list, err := store.ListReplays(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		assert.Equal(t, "p1", r.Winner)
	}
}

func TestSaveReplayRejectsEmptyLog(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.SaveReplay(context.Background(), &game.ActionLog{}, ""))
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(ctx, config.DatabaseConfig{}, dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "r.db")}, dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, config.DatabaseConfig{Driver: "mongo"}, dir, nil)
	assert.Error(t, err)

	_, err = OpenSQLite(ctx, "  ", nil)
	assert.Error(t, err)
}

func TestFileStoreListsNothingWithoutDirectory(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing"), nil)
	list, err := store.ListReplays(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
