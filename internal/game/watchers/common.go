package watchers

import (
	"maps"
	"slices"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

// Watcher keys. Dynamic values look watchers up by these.
const (
	KeySpellsCast        = "SpellsCast"
	KeyCreaturesDied     = "CreaturesDied"
	KeyCardsDrawn        = "CardsDrawn"
	KeyPermanentsEntered = "PermanentsEntered"
)

// Defaults returns the watchers every game registers.
func Defaults() []rules.Watcher {
	return []rules.Watcher{
		NewSpellsCastWatcher(),
		NewCreaturesDiedWatcher(),
		NewCardsDrawnWatcher(),
		NewPermanentsEnteredWatcher(),
	}
}

// SpellsCastWatcher tracks spells cast by players.
type SpellsCastWatcher struct {
	*rules.BaseWatcher
	spellsCast map[string][]string // playerID -> list of spell IDs
}

// NewSpellsCastWatcher creates a new spells cast watcher.
func NewSpellsCastWatcher() *SpellsCastWatcher {
	return &SpellsCastWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame, KeySpellsCast),
		spellsCast:  make(map[string][]string),
	}
}

// Watch implements the Watcher interface.
func (w *SpellsCastWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventSpellCast || event.PlayerID == "" {
		return
	}
	spellID := event.TargetID
	if spellID == "" {
		spellID = event.SourceID
	}
	w.spellsCast[event.PlayerID] = append(w.spellsCast[event.PlayerID], spellID)
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *SpellsCastWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.spellsCast = make(map[string][]string)
}

// SpellsCastBy returns the IDs of the spells a player cast this turn.
func (w *SpellsCastWatcher) SpellsCastBy(playerID string) []string {
	return slices.Clone(w.spellsCast[playerID])
}

// CountBy returns the number of spells cast by a player.
func (w *SpellsCastWatcher) CountBy(playerID string) int {
	return len(w.spellsCast[playerID])
}

// Count returns the number of spells cast by all players.
func (w *SpellsCastWatcher) Count() int {
	total := 0
	for _, ids := range w.spellsCast {
		total += len(ids)
	}
	return total
}

// Copy creates a copy of this watcher.
func (w *SpellsCastWatcher) Copy() rules.Watcher {
	cp := &SpellsCastWatcher{BaseWatcher: w.CopyBase(), spellsCast: make(map[string][]string, len(w.spellsCast))}
	for k, v := range w.spellsCast {
		cp.spellsCast[k] = slices.Clone(v)
	}
	return cp
}

// CreaturesDiedWatcher tracks creatures that died (went to graveyard from battlefield).
type CreaturesDiedWatcher struct {
	*rules.BaseWatcher
	byController map[string]int
	byOwner      map[string]int
}

// NewCreaturesDiedWatcher creates a new creatures died watcher.
func NewCreaturesDiedWatcher() *CreaturesDiedWatcher {
	return &CreaturesDiedWatcher{
		BaseWatcher:  rules.NewBaseWatcher(rules.WatcherScopeGame, KeyCreaturesDied),
		byController: make(map[string]int),
		byOwner:      make(map[string]int),
	}
}

// Watch implements the Watcher interface. The creature check uses the last
// known information carried by the zone change.
func (w *CreaturesDiedWatcher) Watch(event rules.Event) {
	if !event.IsDies() || event.Target == nil || !event.Target.HasType(object.TypeCreature) {
		return
	}
	w.byController[event.Target.ControllerID]++
	w.byOwner[event.Target.OwnerID]++
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CreaturesDiedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.byController = make(map[string]int)
	w.byOwner = make(map[string]int)
}

// AmountByController returns the number of creatures that died under a controller.
func (w *CreaturesDiedWatcher) AmountByController(controllerID string) int {
	return w.byController[controllerID]
}

// AmountByOwner returns the number of creatures that died for an owner.
func (w *CreaturesDiedWatcher) AmountByOwner(ownerID string) int {
	return w.byOwner[ownerID]
}

// Count returns the total number of creatures that died.
func (w *CreaturesDiedWatcher) Count() int {
	total := 0
	for _, n := range w.byController {
		total += n
	}
	return total
}

// Copy creates a copy of this watcher.
func (w *CreaturesDiedWatcher) Copy() rules.Watcher {
	return &CreaturesDiedWatcher{
		BaseWatcher:  w.CopyBase(),
		byController: maps.Clone(w.byController),
		byOwner:      maps.Clone(w.byOwner),
	}
}

// CardsDrawnWatcher tracks cards drawn by players.
type CardsDrawnWatcher struct {
	*rules.BaseWatcher
	cardsDrawn map[string]int // playerID -> count
}

// NewCardsDrawnWatcher creates a new cards drawn watcher.
func NewCardsDrawnWatcher() *CardsDrawnWatcher {
	return &CardsDrawnWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame, KeyCardsDrawn),
		cardsDrawn:  make(map[string]int),
	}
}

// Watch implements the Watcher interface.
func (w *CardsDrawnWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventDrewCard || event.PlayerID == "" {
		return
	}
	w.cardsDrawn[event.PlayerID]++
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsDrawnWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.cardsDrawn = make(map[string]int)
}

// CountBy returns the number of cards drawn by a player.
func (w *CardsDrawnWatcher) CountBy(playerID string) int {
	return w.cardsDrawn[playerID]
}

// Copy creates a copy of this watcher.
func (w *CardsDrawnWatcher) Copy() rules.Watcher {
	return &CardsDrawnWatcher{BaseWatcher: w.CopyBase(), cardsDrawn: maps.Clone(w.cardsDrawn)}
}

// PermanentsEnteredWatcher tracks permanents that entered the battlefield.
type PermanentsEnteredWatcher struct {
	*rules.BaseWatcher
	permanentsEntered map[string][]string // controllerID -> list of permanent IDs
}

// NewPermanentsEnteredWatcher creates a new permanents entered watcher.
func NewPermanentsEnteredWatcher() *PermanentsEnteredWatcher {
	return &PermanentsEnteredWatcher{
		BaseWatcher:       rules.NewBaseWatcher(rules.WatcherScopeGame, KeyPermanentsEntered),
		permanentsEntered: make(map[string][]string),
	}
}

// Watch implements the Watcher interface.
func (w *PermanentsEnteredWatcher) Watch(event rules.Event) {
	if !event.IsEntersBattlefield() || event.Target == nil {
		return
	}
	controllerID := event.Target.ControllerID
	w.permanentsEntered[controllerID] = append(w.permanentsEntered[controllerID], event.TargetID)
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *PermanentsEnteredWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.permanentsEntered = make(map[string][]string)
}

// PermanentsEntered returns the IDs of permanents that entered under a controller.
func (w *PermanentsEnteredWatcher) PermanentsEntered(controllerID string) []string {
	return slices.Clone(w.permanentsEntered[controllerID])
}

// Count returns the number of permanents that entered this turn.
func (w *PermanentsEnteredWatcher) Count() int {
	total := 0
	for _, ids := range w.permanentsEntered {
		total += len(ids)
	}
	return total
}

// Copy creates a copy of this watcher.
func (w *PermanentsEnteredWatcher) Copy() rules.Watcher {
	cp := &PermanentsEnteredWatcher{BaseWatcher: w.CopyBase(), permanentsEntered: make(map[string][]string, len(w.permanentsEntered))}
	for k, v := range w.permanentsEntered {
		cp.permanentsEntered[k] = slices.Clone(v)
	}
	return cp
}
