package table

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/magefree/mage-engine-go/internal/chat"
	"github.com/magefree/mage-engine-go/internal/config"
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/repository"
)

// Option configures a Manager.
type Option func(*Manager)

// WithChat gives every table a chat room that receives the game's status
// lines.
func WithChat(c *chat.Manager) Option {
	return func(m *Manager) { m.chat = c }
}

// WithReplayStore persists the action log of every finished game.
func WithReplayStore(s repository.ReplayStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithDefaults sets the table settings used when a Config leaves them out.
func WithDefaults(cfg config.TableConfig) Option {
	return func(m *Manager) { m.defaults = cfg }
}

// Manager manages all tables.
type Manager struct {
	logger    *zap.Logger
	catalogue game.Catalogue
	chat      *chat.Manager
	store     repository.ReplayStore
	defaults  config.TableConfig

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.RWMutex
	tables map[string]*Table
}

// NewManager creates a table manager. Tables run until Shutdown.
func NewManager(logger *zap.Logger, catalogue game.Catalogue, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	m := &Manager{
		logger:    logger,
		catalogue: catalogue,
		ctx:       ctx,
		cancel:    cancel,
		group:     group,
		tables:    make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.defaults.DecisionTimeout <= 0 {
		m.defaults.DecisionTimeout = 2 * time.Minute
	}
	if m.defaults.StartingLife <= 0 {
		m.defaults.StartingLife = 20
	}
	if m.defaults.OpeningHand <= 0 {
		m.defaults.OpeningHand = 7
	}
	return m
}

// Create starts a game at a new table.
func (m *Manager) Create(ctx context.Context, cfg Config) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(cfg.Seats) < 2 {
		return nil, fmt.Errorf("a table needs at least 2 seats, got %d", len(cfg.Seats))
	}
	seen := make(map[string]bool, len(cfg.Seats))
	players := make([]game.PlayerConfig, 0, len(cfg.Seats))
	for _, s := range cfg.Seats {
		if s.PlayerID == "" || seen[s.PlayerID] {
			return nil, fmt.Errorf("invalid or duplicate player id %q", s.PlayerID)
		}
		seen[s.PlayerID] = true
		name := s.Name
		if name == "" {
			name = s.PlayerID
		}
		players = append(players, game.PlayerConfig{ID: s.PlayerID, Name: name, Deck: s.Deck})
	}
	cfg = m.withDefaults(cfg)

	m.mu.RLock()
	full := m.defaults.MaxTables > 0 && len(m.tables) >= m.defaults.MaxTables
	m.mu.RUnlock()
	if full {
		return nil, ErrTooManyTables
	}

	id := uuid.New().String()
	logger := m.logger.With(zap.String("table_id", id))

	var chatID string
	opts := []game.Option{
		game.WithLogger(logger),
		game.WithSeed(cfg.Seed),
		game.WithStartingLife(cfg.StartingLife),
		game.WithOpeningHand(cfg.OpeningHand),
	}
	if m.chat != nil {
		chatID = m.chat.CreateChatSession(fmt.Sprintf("table:%s", id))
		for _, p := range players {
			if err := m.chat.JoinChat(chatID, p.ID, p.Name); err != nil {
				return nil, fmt.Errorf("failed to join table chat: %w", err)
			}
		}
		opts = append(opts, game.WithBroadcaster(m.chat, chatID))
	}

	g, err := game.New(uuid.New().String(), players, m.catalogue, opts...)
	if err != nil {
		m.dropChat(chatID)
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	if err := g.Start(); err != nil {
		m.dropChat(chatID)
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	t := newTable(id, cfg, g, chatID, m.store, logger)
	m.mu.Lock()
	m.tables[id] = t
	m.mu.Unlock()

	m.group.Go(func() error {
		t.run(m.ctx)
		return nil
	})

	m.logger.Info("table created",
		zap.String("table_id", id),
		zap.String("name", cfg.Name),
		zap.String("game_id", g.ID()),
		zap.Uint64("seed", cfg.Seed),
		zap.Int("players", len(players)))
	return t, nil
}

func (m *Manager) withDefaults(cfg Config) Config {
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = m.defaults.DecisionTimeout
	}
	if cfg.StartingLife <= 0 {
		cfg.StartingLife = m.defaults.StartingLife
	}
	if cfg.OpeningHand <= 0 {
		cfg.OpeningHand = m.defaults.OpeningHand
	}
	if cfg.Name == "" {
		cfg.Name = "Table"
	}
	return cfg
}

func (m *Manager) dropChat(chatID string) {
	if m.chat != nil && chatID != "" {
		m.chat.DestroyChatSession(chatID)
	}
}

// Get retrieves a table by id.
func (m *Manager) Get(tableID string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[tableID]
	return t, ok
}

// Remove closes a table and its chat room.
func (m *Manager) Remove(tableID string) error {
	m.mu.Lock()
	t, ok := m.tables[tableID]
	delete(m.tables, tableID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}

	t.Close()
	m.dropChat(t.ChatID)
	m.logger.Info("table removed", zap.String("table_id", tableID))
	return nil
}

// List returns snapshots of all tables, oldest first.
func (m *Manager) List() []TableSnapshot {
	m.mu.RLock()
	out := make([]TableSnapshot, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.Snapshot())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreateTime.Equal(out[j].CreateTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreateTime.Before(out[j].CreateTime)
	})
	return out
}

// Shutdown stops every table and waits for their goroutines or for ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan error, 1)
	go func() { done <- m.group.Wait() }()
	select {
	case err := <-done:
		m.logger.Info("tables stopped")
		return err
	case <-ctx.Done():
		return fmt.Errorf("waiting for tables: %w", ctx.Err())
	}
}
