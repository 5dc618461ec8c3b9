package table

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/repository"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableClosed   = errors.New("table is closed")
	ErrTooManyTables = errors.New("too many tables")
)

// TableState represents the state of a table
type TableState int

const (
	TableStateWaiting TableState = iota
	TableStatePlaying
	TableStateFinished
	TableStateHalted
	TableStateClosed
)

func (s TableState) String() string {
	switch s {
	case TableStateWaiting:
		return "WAITING"
	case TableStatePlaying:
		return "PLAYING"
	case TableStateFinished:
		return "FINISHED"
	case TableStateHalted:
		return "HALTED"
	case TableStateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Seat is a player sitting at a table.
type Seat struct {
	PlayerID string   `mapstructure:"player_id"`
	Name     string   `mapstructure:"name"`
	Deck     []string `mapstructure:"deck"`
}

// Config describes a table to create. Zero values take the manager's
// defaults.
type Config struct {
	Name            string        `mapstructure:"name"`
	Seats           []Seat        `mapstructure:"seats"`
	Seed            uint64        `mapstructure:"seed"`
	DecisionTimeout time.Duration `mapstructure:"decision_timeout"`
	StartingLife    int           `mapstructure:"starting_life"`
	OpeningHand     int           `mapstructure:"opening_hand"`
}

// Update is pushed to a subscriber after every change of the game.
type Update struct {
	TableID string
	View    game.GameView
	// Halted is set when the game stopped on an internal error; Error
	// carries its message.
	Halted bool
	Error  string
}

// TableSnapshot is a consistent copy of a table's state.
type TableSnapshot struct {
	ID         string
	Name       string
	GameID     string
	ChatID     string
	State      TableState
	Players    []string
	Turn       int
	Step       string
	Active     string
	Priority   string
	Winner     string
	CreateTime time.Time
	EndTime    *time.Time
}

type request struct {
	action *game.PlayerAction
	query  func(*game.Game)
	reply  chan error
}

type subscriber struct {
	viewer string
	ch     chan Update
}

// Table runs one game. A single goroutine owns the game; every input and
// every read of the game goes through it.
type Table struct {
	ID         string
	Name       string
	ChatID     string
	CreateTime time.Time

	game     *game.Game
	seats    []Seat
	timeout  time.Duration
	store    repository.ReplayStore
	logger   *zap.Logger
	requests chan request
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	state   TableState
	snap    TableSnapshot
	subs    map[int]*subscriber
	nextSub int
}

func newTable(id string, cfg Config, g *game.Game, chatID string, store repository.ReplayStore, logger *zap.Logger) *Table {
	t := &Table{
		ID:         id,
		Name:       cfg.Name,
		ChatID:     chatID,
		CreateTime: time.Now(),
		game:       g,
		seats:      slices.Clone(cfg.Seats),
		timeout:    cfg.DecisionTimeout,
		store:      store,
		logger:     logger,
		requests:   make(chan request),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		state:      TableStatePlaying,
		subs:       make(map[int]*subscriber),
	}
	t.refresh()
	return t
}

// run serves requests and decision timeouts until ctx is done or the table
// is closed.
func (t *Table) run(ctx context.Context) {
	defer close(t.done)
	defer t.closeSubscribers()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()
	t.armTimer(timer)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case req := <-t.requests:
			if req.query != nil {
				req.query(t.game)
				req.reply <- nil
				continue
			}
			err := t.apply(ctx, *req.action)
			req.reply <- err
			if err == nil || errors.Is(err, rules.ErrInvariantViolation) {
				t.armTimer(timer)
			}
		case <-timer.C:
			t.expire(ctx)
			t.armTimer(timer)
		}
	}
}

func (t *Table) apply(ctx context.Context, a game.PlayerAction) error {
	err := t.game.ProcessAction(a)
	switch {
	case err == nil:
	case errors.Is(err, rules.ErrInvariantViolation):
		t.logger.Error("game halted",
			zap.String("table_id", t.ID),
			zap.String("game_id", t.game.ID()),
			zap.Error(err))
	default:
		return err
	}
	t.afterChange(ctx)
	return err
}

// expire takes the default decision for whoever the game is waiting on.
func (t *Table) expire(ctx context.Context) {
	player := t.waitingOn()
	if player == "" {
		return
	}
	t.logger.Info("decision timed out",
		zap.String("table_id", t.ID),
		zap.String("player_id", player))
	a := game.PlayerAction{PlayerID: player, ActionType: game.ActionTimeout, Timestamp: time.Now()}
	if err := t.apply(ctx, a); err != nil && !errors.Is(err, rules.ErrInvariantViolation) {
		t.logger.Warn("timeout action rejected",
			zap.String("table_id", t.ID),
			zap.Error(err))
	}
}

func (t *Table) waitingOn() string {
	if t.game.State() != game.StateRunning {
		return ""
	}
	if req := t.game.PendingOrder(); req != nil {
		return req.PlayerID
	}
	return t.game.PriorityHolder()
}

func (t *Table) armTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	if t.waitingOn() != "" {
		timer.Reset(t.timeout)
	}
}

// afterChange refreshes the snapshot, pushes views and stores the replay
// once the game ends.
func (t *Table) afterChange(ctx context.Context) {
	prev := t.State()
	t.refresh()
	t.publish()

	if prev != TableStatePlaying || t.State() != TableStateFinished {
		return
	}
	t.logger.Info("game finished",
		zap.String("table_id", t.ID),
		zap.String("game_id", t.game.ID()),
		zap.String("winner", t.game.Winner()))
	if t.store == nil {
		return
	}
	if err := t.store.SaveReplay(ctx, t.game.Log(), t.game.Winner()); err != nil {
		t.logger.Error("failed to save replay",
			zap.String("game_id", t.game.ID()),
			zap.Error(err))
	}
}

func (t *Table) refresh() {
	g := t.game
	snap := TableSnapshot{
		ID:         t.ID,
		Name:       t.Name,
		GameID:     g.ID(),
		ChatID:     t.ChatID,
		Turn:       g.TurnNumber(),
		Step:       g.Step().String(),
		Active:     g.ActivePlayerID(),
		Priority:   g.PriorityHolder(),
		Winner:     g.Winner(),
		CreateTime: t.CreateTime,
	}
	for _, s := range t.seats {
		snap.Players = append(snap.Players, s.Name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TableStatePlaying {
		switch g.State() {
		case game.StateFinished:
			t.state = TableStateFinished
		case game.StateHalted:
			t.state = TableStateHalted
		}
		if t.state != TableStatePlaying {
			now := time.Now()
			t.snap.EndTime = &now
		}
	}
	snap.State = t.state
	snap.EndTime = t.snap.EndTime
	t.snap = snap
}

// publish sends the current view to every subscriber. The read lock is
// held while sending so an unsubscribe cannot close a channel under us;
// sends never block.
func (t *Table) publish() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.subs {
		select {
		case s.ch <- t.update(s.viewer):
		default:
			t.logger.Debug("subscriber too slow, dropping update",
				zap.String("table_id", t.ID),
				zap.String("viewer", s.viewer))
		}
	}
}

func (t *Table) update(viewer string) Update {
	u := Update{TableID: t.ID, View: t.game.View(viewer)}
	if err := t.game.Err(); err != nil {
		u.Halted = true
		u.Error = err.Error()
	}
	return u
}

func (t *Table) closeSubscribers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range t.subs {
		close(s.ch)
		delete(t.subs, id)
	}
}

// do runs r on the table goroutine and waits for its reply.
func (t *Table) do(ctx context.Context, r request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.reply = make(chan error, 1)
	select {
	case t.requests <- r:
	case <-t.done:
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit hands a player action to the game and returns the engine's
// verdict. Illegal actions return a rules.IllegalActionError and change
// nothing.
func (t *Table) Submit(ctx context.Context, a game.PlayerAction) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return t.do(ctx, request{action: &a})
}

// View returns the game as viewer sees it.
func (t *Table) View(ctx context.Context, viewer string) (game.GameView, error) {
	var v game.GameView
	err := t.do(ctx, request{query: func(g *game.Game) { v = g.View(viewer) }})
	return v, err
}

// ActionLog returns the game's action log so far.
func (t *Table) ActionLog(ctx context.Context) (*game.ActionLog, error) {
	var log *game.ActionLog
	err := t.do(ctx, request{query: func(g *game.Game) {
		c := *g.Log()
		c.Entries = slices.Clone(c.Entries)
		log = &c
	}})
	return log, err
}

// Subscribe registers viewer for updates. The current view is delivered
// first. The returned cancel function unsubscribes; the channel is closed
// when the table closes.
func (t *Table) Subscribe(ctx context.Context, viewer string) (<-chan Update, func(), error) {
	ch := make(chan Update, 32)
	var id int
	err := t.do(ctx, request{query: func(*game.Game) {
		t.mu.Lock()
		id = t.nextSub
		t.nextSub++
		t.subs[id] = &subscriber{viewer: viewer, ch: ch}
		t.mu.Unlock()
		ch <- t.update(viewer)
	}})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if s, ok := t.subs[id]; ok {
			close(s.ch)
			delete(t.subs, id)
		}
	}
	return ch, cancel, nil
}

// Seated reports whether playerID plays at this table.
func (t *Table) Seated(playerID string) bool {
	for _, s := range t.seats {
		if s.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (t *Table) State() TableState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Snapshot returns a consistent copy of the table state.
func (t *Table) Snapshot() TableSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	s.Players = slices.Clone(t.snap.Players)
	return s
}

// Close stops the table goroutine and waits for it.
func (t *Table) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
	t.mu.Lock()
	t.state = TableStateClosed
	t.snap.State = TableStateClosed
	t.mu.Unlock()
}

func (t *Table) String() string {
	return fmt.Sprintf("table %s (%s)", t.ID, t.Name)
}
