// Package game is the rules engine: it owns every game object, applies
// player actions, resolves the stack, performs state-based actions, detects
// triggered abilities and runs the turn structure. A Game is single-threaded;
// callers serialize access (see internal/table).
package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/targeting"
	"github.com/magefree/mage-engine-go/internal/game/watchers"
)

const (
	defaultStartingLife = 20
	defaultOpeningHand  = 7
	maxHandSize         = 7
	// maxStateIterations bounds the state-based action and trigger loop.
	maxStateIterations = 100
	maxMessages        = 50
)

// State is the lifecycle state of a game.
type State string

const (
	StateWaiting  State = "WAITING"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
	// StateHalted means an invariant was violated; the game accepts no more actions.
	StateHalted State = "HALTED"
)

// Catalogue resolves card names to definitions.
type Catalogue interface {
	Lookup(name string) (CardSpec, bool)
}

// PlayerConfig describes a player joining a game.
type PlayerConfig struct {
	ID   string
	Name string
	// Deck lists card names, top of the library first before shuffling.
	Deck []string
}

// Settings are the game options that change the rules outcome. They are
// recorded in the action log so a replay runs under the same rules.
type Settings struct {
	StartingLife      int
	OpeningHand       int
	AutoOrderTriggers bool
}

// Option configures a Game.
type Option func(*Game)

func WithLogger(logger *zap.Logger) Option {
	return func(g *Game) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithSeed seeds the random number generator used for shuffling.
func WithSeed(seed uint64) Option {
	return func(g *Game) { g.seed = seed }
}

// WithDecider sets who answers choices made while a spell or ability resolves.
func WithDecider(d Decider) Option {
	return func(g *Game) {
		if d != nil {
			g.decider = d
		}
	}
}

// WithBroadcaster sends game status lines to audience.
func WithBroadcaster(b Broadcaster, audience string) Option {
	return func(g *Game) {
		g.broadcaster = b
		g.audience = audience
	}
}

// WithAutoOrderTriggers puts simultaneous triggers of one player on the stack
// in detection order instead of asking the player.
func WithAutoOrderTriggers() Option {
	return func(g *Game) { g.settings.AutoOrderTriggers = true }
}

func WithStartingLife(n int) Option {
	return func(g *Game) { g.settings.StartingLife = n }
}

func WithOpeningHand(n int) Option {
	return func(g *Game) { g.settings.OpeningHand = n }
}

// Game is one running game. It is not safe for concurrent use.
type Game struct {
	id        string
	logger    *zap.Logger
	namespace uuid.UUID
	seq       int
	timestamp int64
	settings  Settings

	catalogue Catalogue
	players   map[string]*Player
	seats     []string // seating order, fixed for the whole game
	cards     map[string]*Card
	// battlefield lists permanents in the order they entered.
	battlefield []string
	emblems     []*Emblem
	stack       *rules.Stack
	lastKnown   map[string]*object.Snapshot

	layers       *effects.LayerSystem
	replacements *effects.ReplacementManager
	bus          *rules.EventBus
	watchers     *rules.WatcherRegistry
	triggers     *rules.TriggerDispatcher
	triggered    map[string]*pendingAbility
	priority     *rules.PriorityLoop
	turn         *rules.TurnManager
	mods         *rules.TurnMods

	// registrations maps an object id to the effects its static abilities
	// registered, per zone.
	registrations map[string][]registration
	// templates maps ability text to a card's ability template, so an object
	// that gains the text through an effect can be given the ability.
	templates map[string]Ability
	synced    syncKey
	syncing   bool
	// leftInBatch holds objects that left the battlefield during the current
	// simultaneous move, so their leaves-the-battlefield abilities see each other.
	leftInBatch []string
	inBatch     bool

	cleanupAgain bool
	holderAfter  string

	seed        uint64
	rng         *rand.Rand
	decider     Decider
	broadcaster Broadcaster
	audience    string
	log         *ActionLog
	replay      *replayCursor

	state    State
	halted   error
	winner   string
	messages []string
}

// New creates a game. Players sit in the given order and the first player
// takes the first turn. Decks are resolved through catalogue.
func New(id string, players []PlayerConfig, catalogue Catalogue, opts ...Option) (*Game, error) {
	if id == "" {
		return nil, errors.New("game id is required")
	}
	if len(players) < 2 {
		return nil, fmt.Errorf("game %s: need at least 2 players, got %d", id, len(players))
	}
	g := &Game{
		id:            id,
		logger:        zap.NewNop(),
		settings:      Settings{StartingLife: defaultStartingLife, OpeningHand: defaultOpeningHand},
		catalogue:     catalogue,
		players:       make(map[string]*Player, len(players)),
		cards:         make(map[string]*Card),
		stack:         rules.NewStack(),
		lastKnown:     make(map[string]*object.Snapshot),
		bus:           rules.NewEventBus(),
		watchers:      rules.NewWatcherRegistry(),
		triggered:     make(map[string]*pendingAbility),
		priority:      rules.NewPriorityLoop(),
		mods:          rules.NewTurnMods(),
		registrations: make(map[string][]registration),
		templates:     make(map[string]Ability),
		decider:       AutoDecider{},
		state:         StateWaiting,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("game_id", id))
	g.namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("mage-game/"+id))
	g.layers = effects.NewLayerSystem(g.logger, uuid.NewSHA1(g.namespace, []byte("layers")))
	g.replacements = effects.NewReplacementManager(g.logger, uuid.NewSHA1(g.namespace, []byte("replacements")))
	g.triggers = rules.NewTriggerDispatcher(g.settings.AutoOrderTriggers)
	g.rng = rand.New(rand.NewSource(g.seed))

	for _, w := range watchers.Defaults() {
		g.watchers.Add(w)
	}
	g.bus.Subscribe(g.watch)
	g.bus.Subscribe(g.detectTriggers)

	for _, pc := range players {
		if pc.ID == "" {
			return nil, fmt.Errorf("game %s: player id is required", id)
		}
		if _, dup := g.players[pc.ID]; dup {
			return nil, fmt.Errorf("game %s: duplicate player %s", id, pc.ID)
		}
		g.players[pc.ID] = newPlayer(pc, g.settings.StartingLife)
		g.seats = append(g.seats, pc.ID)
	}
	g.turn = rules.NewTurnManager(g.seats, g.seats[0])
	for _, pc := range players {
		for _, name := range pc.Deck {
			if catalogue == nil {
				return nil, fmt.Errorf("game %s: no catalogue to resolve %q", id, name)
			}
			spec, ok := catalogue.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("game %s: unknown card %q in deck of %s", id, name, pc.ID)
			}
			g.CreateCard(pc.ID, spec, object.ZoneLibrary)
		}
	}

	g.log = newActionLog(id, g.seed, players, g.settings)
	g.logger.Info("game created",
		zap.Int("players", len(players)),
		zap.Uint64("seed", g.seed))
	return g, nil
}

// Start shuffles the libraries, draws opening hands and begins the first turn.
func (g *Game) Start() error {
	if g.state != StateWaiting {
		return rules.IllegalAction("", "game already started")
	}
	for _, id := range g.seats {
		g.shuffleLibrary(id)
	}
	for _, id := range g.seats {
		g.drawOpeningHand(id, g.settings.OpeningHand)
	}
	if g.halted != nil {
		return g.halted
	}
	g.state = StateRunning
	g.status("Game started, %s takes the first turn", g.players[g.seats[0]].name)
	if err := g.advance(); err != nil {
		return g.fail(err)
	}
	return g.halted
}

func (g *Game) ID() string         { return g.id }
func (g *Game) State() State       { return g.state }
func (g *Game) Winner() string     { return g.winner }
func (g *Game) Settings() Settings { return g.settings }

// Err returns the invariant violation that halted the game, if any.
func (g *Game) Err() error { return g.halted }

// Log returns the action log of the game.
func (g *Game) Log() *ActionLog { return g.log }

// Messages returns the most recent status lines.
func (g *Game) Messages() []string { return slices.Clone(g.messages) }

// Seats returns every player id in seating order, including players who left.
func (g *Game) Seats() []string { return slices.Clone(g.seats) }

// Player returns a player by id.
func (g *Game) Player(id string) (*Player, bool) {
	p, ok := g.players[id]
	return p, ok
}

// Card returns a card by id.
func (g *Game) Card(id string) (*Card, bool) {
	c, ok := g.cards[id]
	return c, ok
}

// Battlefield returns permanent ids in the order they entered.
func (g *Game) Battlefield() []string { return slices.Clone(g.battlefield) }

// Stack returns the stack, top first.
func (g *Game) Stack() []*StackObject {
	items := g.stack.List()
	out := make([]*StackObject, 0, len(items))
	for _, it := range items {
		out = append(out, it.(*StackObject))
	}
	return out
}

func (g *Game) Step() rules.Step             { return g.turn.CurrentStep() }
func (g *Game) Phase() rules.Phase           { return g.turn.CurrentPhase() }
func (g *Game) PriorityHolder() string       { return g.priority.Holder() }
func (g *Game) StackState() rules.StackState { return g.priority.State() }

// TurnMods returns the queued turn modifications.
func (g *Game) TurnMods() []rules.TurnMod { return g.mods.Pending() }

// PendingOrder returns the outstanding trigger ordering request, if any.
func (g *Game) PendingOrder() *rules.OrderRequest { return g.triggers.Awaiting() }

// Watcher returns a registered watcher by key.
func (g *Game) Watcher(key string) (rules.Watcher, bool) { return g.watchers.Get(key) }

// Subscribe registers an event handler, for observers such as tests and the table.
func (g *Game) Subscribe(handler rules.EventHandler) int { return g.bus.Subscribe(handler) }

// Unsubscribe removes a handler registered with Subscribe.
func (g *Game) Unsubscribe(handle int) { g.bus.Unsubscribe(handle) }

// Layers exposes the continuous effects of the game.
func (g *Game) Layers() *effects.LayerSystem { return g.layers }

// Replacements exposes the replacement and rule-modifying effects of the game.
func (g *Game) Replacements() *effects.ReplacementManager { return g.replacements }

func (g *Game) ActivePlayerID() string { return g.turn.ActivePlayer() }

func (g *Game) TurnNumber() int { return g.turn.TurnNumber() }

func (g *Game) PlayerLife(playerID string) (int, bool) {
	p, ok := g.players[playerID]
	if !ok {
		return 0, false
	}
	return p.life, true
}

func (g *Game) PlayerInGame(playerID string) bool {
	p, ok := g.players[playerID]
	return ok && p.inGame()
}

// Object returns the current characteristics of an object: the result of
// applying every active continuous effect to its base state.
func (g *Game) Object(id string) (*object.Snapshot, bool) {
	if c, ok := g.cards[id]; ok {
		return g.evaluate(c), true
	}
	if it, ok := g.stack.Get(id); ok {
		return it.(*StackObject).snapshot(), true
	}
	for _, e := range g.emblems {
		if e.id == id {
			return e.snapshot(), true
		}
	}
	return nil, false
}

// Characteristics is Object under the name the layering engine documents.
func (g *Game) Characteristics(id string) (*object.Snapshot, bool) { return g.Object(id) }

// CharacteristicsThrough returns an object's characteristics with effects
// applied up to and including the given layer and sublayer. It panics if
// the layer has no such sublayer.
func (g *Game) CharacteristicsThrough(id string, layer effects.Layer, sub effects.SubLayer) (*object.Snapshot, bool) {
	c, ok := g.cards[id]
	if !ok {
		return nil, false
	}
	return g.layers.EvaluateThrough(g, c.snapshot(), layer, sub).Snapshot, true
}

// CopiableValues returns an object's copiable values. An object that no
// longer exists is copied from its last known information.
func (g *Game) CopiableValues(id string) (*object.Snapshot, bool) {
	if s, ok := g.CharacteristicsThrough(id, effects.LayerCopy, effects.SubLayerNA); ok {
		return s, true
	}
	return g.LastKnown(id)
}

// AbilityValues returns an object's characteristics after the ability layer.
// Effects of a static ability apply only while these still carry it.
func (g *Game) AbilityValues(id string) (*object.Snapshot, bool) {
	if s, ok := g.CharacteristicsThrough(id, effects.LayerAbility, effects.SubLayerNA); ok {
		return s, true
	}
	return g.Object(id)
}

// ObjectsIn returns the current characteristics of every object in a zone.
func (g *Game) ObjectsIn(zone object.Zone) []*object.Snapshot {
	var out []*object.Snapshot
	for _, id := range g.objectsIn(zone) {
		if s, ok := g.Object(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func (g *Game) LastKnown(id string) (*object.Snapshot, bool) {
	s, ok := g.lastKnown[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (g *Game) ZoneOf(id string) object.Zone {
	if c, ok := g.cards[id]; ok {
		return c.zone
	}
	if _, ok := g.stack.Get(id); ok {
		return object.ZoneStack
	}
	for _, e := range g.emblems {
		if e.id == id {
			return object.ZoneCommand
		}
	}
	return object.ZoneNone
}

func (g *Game) evaluate(c *Card) *object.Snapshot {
	ev := g.layers.Evaluate(g, c.snapshot())
	return ev.Snapshot
}

// objectsIn lists object ids in a zone in a fixed order: battlefield by entry,
// player zones by seat, the stack from the bottom.
func (g *Game) objectsIn(zone object.Zone) []string {
	switch zone {
	case object.ZoneBattlefield:
		return slices.Clone(g.battlefield)
	case object.ZoneStack:
		items := g.stack.List()
		out := make([]string, 0, len(items))
		for i := len(items) - 1; i >= 0; i-- {
			out = append(out, items[i].ID())
		}
		return out
	case object.ZoneCommand:
		out := make([]string, 0, len(g.emblems))
		for _, e := range g.emblems {
			out = append(out, e.id)
		}
		return out
	case object.ZoneAll:
		var out []string
		for _, z := range []object.Zone{object.ZoneBattlefield, object.ZoneStack, object.ZoneHand, object.ZoneGraveyard, object.ZoneExile, object.ZoneLibrary, object.ZoneCommand} {
			out = append(out, g.objectsIn(z)...)
		}
		return out
	}
	var out []string
	for _, pid := range g.seats {
		if list := g.players[pid].zoneList(zone); list != nil {
			out = append(out, *list...)
		}
	}
	return out
}

func (g *Game) controllerOf(id string) string {
	if s, ok := g.Object(id); ok {
		return s.ControllerID
	}
	return ""
}

func (g *Game) validator() *targeting.Validator {
	return targeting.NewValidator(g)
}

// apnap returns the players still in the game starting with the active player.
func (g *Game) apnap() []string {
	order := g.turn.Order()
	i := slices.Index(order, g.turn.ActivePlayer())
	if i > 0 {
		order = append(order[i:], order[:i]...)
	}
	return order
}

func (g *Game) nextID(kind string) string {
	g.seq++
	return uuid.NewSHA1(g.namespace, fmt.Appendf(nil, "%s/%d", kind, g.seq)).String()
}

func (g *Game) nextTimestamp() int64 {
	g.timestamp++
	return g.timestamp
}

// fire publishes an event to watchers and trigger detection.
func (g *Game) fire(ev rules.Event) rules.Event {
	ev = g.bus.Publish(ev)
	g.logger.Debug("event",
		zap.String("type", string(ev.Type)),
		zap.Int64("sequence", ev.Sequence),
		zap.String("target_id", ev.TargetID),
		zap.String("source_id", ev.SourceID),
		zap.String("player_id", ev.PlayerID),
		zap.Int("amount", ev.Amount))
	return ev
}

// replace runs an event through rule-modifying and replacement effects
// before it happens.
func (g *Game) replace(ev rules.Event) (rules.Event, bool) {
	out, prevented := g.replacements.ReplaceEvent(g, ev)
	if prevented {
		g.logger.Debug("event replaced",
			zap.String("type", string(ev.Type)),
			zap.String("target_id", ev.TargetID),
			zap.Strings("applied", out.AppliedEffects))
	}
	return out, prevented
}

func (g *Game) watch(ev rules.Event) {
	if ev.Type == rules.EventBeginTurn {
		g.watchers.Reset()
	}
	g.watchers.Watch(ev)
}

func (g *Game) addTurnMod(mod rules.TurnMod) {
	mod.ID = g.nextID("turnmod")
	g.mods.Add(mod)
	g.logger.Debug("turn modification added",
		zap.String("kind", mod.Kind.String()),
		zap.String("player_id", mod.PlayerID))
}

// fail records an invariant violation and halts the game. Other errors are
// returned unchanged.
func (g *Game) fail(err error) error {
	if err == nil || !errors.Is(err, rules.ErrInvariantViolation) {
		return err
	}
	if g.halted == nil {
		g.halted = err
		g.state = StateHalted
		g.priority.Close()
		g.logger.Error("game halted", zap.Error(err))
	}
	return g.halted
}

func (g *Game) status(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	g.messages = append(g.messages, msg)
	if len(g.messages) > maxMessages {
		g.messages = slices.Delete(g.messages, 0, len(g.messages)-maxMessages)
	}
	g.logger.Info(msg)
	g.broadcast(msg)
}
