package game

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/magefree/mage-engine-go/internal/game/rules"
)

const replayVersion = 1

// ErrCorruptLog is returned when a saved action log fails its checksum.
var ErrCorruptLog = errors.New("action log checksum mismatch")

// EntryKind is the kind of an action log entry.
type EntryKind string

const (
	EntryAction EntryKind = "action"
	EntryRandom EntryKind = "random"
	EntryChoice EntryKind = "choice"
	EntryPicks  EntryKind = "picks"
)

// LogEntry is one input to the game: a player action, a random draw or an
// answer the decider gave.
type LogEntry struct {
	Kind   EntryKind
	Action *PlayerAction
	Bound  int
	Value  int
	Choice bool
	Picks  [][]string
}

// ActionLog records everything needed to replay a game: its setup and every
// input in order. Replaying the log from the same seed reproduces the game.
type ActionLog struct {
	GameID   string
	Seed     uint64
	Players  []PlayerConfig
	Settings Settings
	Entries  []LogEntry
}

func newActionLog(gameID string, seed uint64, players []PlayerConfig, settings Settings) *ActionLog {
	ps := make([]PlayerConfig, len(players))
	for i, p := range players {
		ps[i] = PlayerConfig{ID: p.ID, Name: p.Name, Deck: slices.Clone(p.Deck)}
	}
	return &ActionLog{GameID: gameID, Seed: seed, Players: ps, Settings: settings}
}

func (l *ActionLog) recordAction(a PlayerAction) int {
	l.Entries = append(l.Entries, LogEntry{Kind: EntryAction, Action: &a})
	return len(l.Entries) - 1
}

func (l *ActionLog) recordRandom(bound, value int) {
	l.Entries = append(l.Entries, LogEntry{Kind: EntryRandom, Bound: bound, Value: value})
}

func (l *ActionLog) recordChoice(use bool) {
	l.Entries = append(l.Entries, LogEntry{Kind: EntryChoice, Choice: use})
}

func (l *ActionLog) recordPicks(picks [][]string) {
	cp := make([][]string, len(picks))
	for i, p := range picks {
		cp[i] = slices.Clone(p)
	}
	l.Entries = append(l.Entries, LogEntry{Kind: EntryPicks, Picks: cp})
}

// truncate drops the entries of an action that turned out to be illegal.
func (l *ActionLog) truncate(n int) {
	if n < len(l.Entries) {
		l.Entries = l.Entries[:n]
	}
}

// Actions returns the recorded player actions in order.
func (l *ActionLog) Actions() []PlayerAction {
	var out []PlayerAction
	for _, e := range l.Entries {
		if e.Kind == EntryAction {
			out = append(out, *e.Action)
		}
	}
	return out
}

// Len returns the number of entries.
func (l *ActionLog) Len() int { return len(l.Entries) }

// Checksum is the BLAKE2b-256 digest of the encoded log.
func (l *ActionLog) Checksum() ([32]byte, error) {
	body, err := l.encode()
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(body), nil
}

func (l *ActionLog) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(l); err != nil {
		return nil, fmt.Errorf("encode action log: %w", err)
	}
	return buf.Bytes(), nil
}

// replayMetadata precedes the log in a saved file.
type replayMetadata struct {
	GameID   string
	Saved    time.Time
	Version  int
	Entries  int
	Checksum [32]byte
}

// Marshal encodes the log as gzip-compressed gob with a checksum header.
func (l *ActionLog) Marshal() ([]byte, error) {
	body, err := l.encode()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	meta := replayMetadata{
		GameID:   l.GameID,
		Saved:    time.Now().UTC(),
		Version:  replayVersion,
		Entries:  len(l.Entries),
		Checksum: blake2b.Sum256(body),
	}
	if err := gob.NewEncoder(zw).Encode(&meta); err != nil {
		return nil, fmt.Errorf("encode replay metadata: %w", err)
	}
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("compress action log: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress action log: %w", err)
	}
	return out.Bytes(), nil
}

// UnmarshalActionLog decodes a log written by Marshal and verifies its checksum.
func UnmarshalActionLog(data []byte) (*ActionLog, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress action log: %w", err)
	}
	r := bytes.NewReader(raw)
	var meta replayMetadata
	if err := gob.NewDecoder(r).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", meta.Version)
	}
	body := raw[len(raw)-r.Len():]
	if blake2b.Sum256(body) != meta.Checksum {
		return nil, ErrCorruptLog
	}
	var l ActionLog
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&l); err != nil {
		return nil, fmt.Errorf("failed to decode action log: %w", err)
	}
	if len(l.Entries) != meta.Entries {
		return nil, fmt.Errorf("action log has %d entries, metadata says %d", len(l.Entries), meta.Entries)
	}
	return &l, nil
}

// SaveToFile writes the log to <directory>/<game id>.replay.
func (l *ActionLog) SaveToFile(directory string) (string, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := l.Marshal()
	if err != nil {
		return "", err
	}
	filename := filepath.Join(directory, l.GameID+".replay")
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write replay: %w", err)
	}
	return filename, nil
}

// LoadActionLog reads a log saved with SaveToFile.
func LoadActionLog(filename string) (*ActionLog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	return UnmarshalActionLog(data)
}

// replayCursor feeds recorded inputs back to a replaying game.
type replayCursor struct {
	entries []LogEntry
	pos     int
}

func (c *replayCursor) take(kind EntryKind) (LogEntry, error) {
	if c.pos >= len(c.entries) {
		return LogEntry{}, rules.Invariantf("replay", "log exhausted, wanted %s entry", kind)
	}
	e := c.entries[c.pos]
	if e.Kind != kind {
		return LogEntry{}, rules.Invariantf("replay", "entry %d is %s, wanted %s", c.pos, e.Kind, kind)
	}
	c.pos++
	return e, nil
}

func (c *replayCursor) done() bool { return c.pos >= len(c.entries) }

// randomInt returns a random number in [0, n). Every draw is logged; a
// replaying game verifies its draws against the log and halts on a mismatch.
func (g *Game) randomInt(n int) int {
	v := g.rng.Intn(n)
	if g.replay != nil {
		e, err := g.replay.take(EntryRandom)
		if err == nil && (e.Bound != n || e.Value != v) {
			err = rules.Invariantf("replay", "random draw in [0,%d) gave %d, log has %d in [0,%d)", n, v, e.Value, e.Bound)
		}
		if err != nil {
			g.fail(err)
		}
	}
	g.log.recordRandom(n, v)
	return v
}

func (g *Game) replayPicks() ([][]string, bool) {
	if g.replay == nil {
		return nil, false
	}
	e, err := g.replay.take(EntryPicks)
	if err != nil {
		g.fail(err)
		return nil, false
	}
	return e.Picks, true
}

func (g *Game) replayChoice() (bool, bool) {
	if g.replay == nil {
		return false, false
	}
	e, err := g.replay.take(EntryChoice)
	if err != nil {
		g.fail(err)
		return false, false
	}
	return e.Choice, true
}

// Replay rebuilds a game from its action log.
func Replay(log *ActionLog, catalogue Catalogue, opts ...Option) (*Game, error) {
	return ReplayActions(log, catalogue, -1, opts...)
}

// ReplayActions rebuilds a game from the first n actions of its log; a
// negative n replays all of them. The rebuilt game records the same log.
func ReplayActions(log *ActionLog, catalogue Catalogue, n int, opts ...Option) (*Game, error) {
	opts = append(opts, WithSeed(log.Seed), withSettings(log.Settings))
	g, err := New(log.GameID, log.Players, catalogue, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", log.GameID, err)
	}
	g.replay = &replayCursor{entries: log.Entries}
	if err := g.Start(); err != nil {
		return g, fmt.Errorf("replay %s: %w", log.GameID, err)
	}
	for applied := 0; !g.replay.done() && (n < 0 || applied < n); applied++ {
		e, err := g.replay.take(EntryAction)
		if err != nil {
			return g, fmt.Errorf("replay %s: %w", log.GameID, g.fail(err))
		}
		if err := g.ProcessAction(*e.Action); err != nil {
			return g, fmt.Errorf("replay %s: action %d: %w", log.GameID, applied, err)
		}
	}
	g.replay = nil
	g.logger.Info("game replayed",
		zap.Int("entries", g.log.Len()))
	return g, nil
}

func withSettings(s Settings) Option {
	return func(g *Game) { g.settings = s }
}

// ReplayRecorder keeps the action logs of finished games until they are
// saved to disk.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	logs    map[string]*ActionLog
	saveDir string
}

// NewReplayRecorder creates a recorder saving into saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		logs:    make(map[string]*ActionLog),
		saveDir: saveDir,
	}
}

// Record stores a game's log, replacing any earlier one.
func (rr *ReplayRecorder) Record(log *ActionLog) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.logs[log.GameID] = log
}

// Get returns the stored log of a game.
func (rr *ReplayRecorder) Get(gameID string) (*ActionLog, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	l, ok := rr.logs[gameID]
	return l, ok
}

// Save writes a game's log to disk and forgets it.
func (rr *ReplayRecorder) Save(gameID string) (string, error) {
	rr.mu.Lock()
	l, ok := rr.logs[gameID]
	if !ok {
		rr.mu.Unlock()
		return "", fmt.Errorf("no replay found for game %s", gameID)
	}
	delete(rr.logs, gameID)
	rr.mu.Unlock()

	filename, err := l.SaveToFile(rr.saveDir)
	if err != nil {
		return "", fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("game_id", gameID),
		zap.Int("entries", l.Len()),
		zap.String("file", filename))
	return filename, nil
}

// Load reads a game's log from the save directory.
func (rr *ReplayRecorder) Load(gameID string) (*ActionLog, error) {
	return LoadActionLog(filepath.Join(rr.saveDir, gameID+".replay"))
}
