// Package values implements dynamic values: quantities computed from the live
// game state every time they are read.
package values

import (
	"fmt"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

// Game is the read-only view of the game that dynamic values evaluate against.
type Game interface {
	// Object returns the current characteristics of an object in any zone.
	Object(id string) (*object.Snapshot, bool)
	// ObjectsIn returns the current characteristics of every object in a zone.
	ObjectsIn(zone object.Zone) []*object.Snapshot
	// LastKnown returns the last known information of an object that left its zone.
	LastKnown(id string) (*object.Snapshot, bool)
	PlayerLife(playerID string) (int, bool)
	ActivePlayerID() string
	TurnNumber() int
	Watcher(key string) (rules.Watcher, bool)
}

// Source identifies the ability a value is evaluated for.
type Source struct {
	ID           string
	ControllerID string
}

// FilterContext returns the filter context of the source.
func (s Source) FilterContext() object.FilterContext {
	return object.FilterContext{SourceID: s.ID, ControllerID: s.ControllerID}
}

// DynamicValue is a number computed fresh on every read. Implementations
// must not change game state.
type DynamicValue interface {
	Calculate(g Game, src Source) int
	Message() string
	Copy() DynamicValue
}

// Static is a fixed number.
type Static int

func (v Static) Calculate(Game, Source) int { return int(v) }
func (v Static) Message() string             { return "" }
func (v Static) Copy() DynamicValue          { return v }
func (v Static) String() string              { return fmt.Sprint(int(v)) }

// CardsInAllGraveyards counts cards matching a filter in every graveyard.
type CardsInAllGraveyards struct {
	Filter *object.Filter
}

func NewCardsInAllGraveyards(filter *object.Filter) *CardsInAllGraveyards {
	return &CardsInAllGraveyards{Filter: filter}
}

func (v *CardsInAllGraveyards) Calculate(g Game, src Source) int {
	return countMatching(g.ObjectsIn(object.ZoneGraveyard), v.Filter, src, "")
}

func (v *CardsInAllGraveyards) Message() string {
	return v.Filter.String() + "s in all graveyards"
}

func (v *CardsInAllGraveyards) Copy() DynamicValue { return &CardsInAllGraveyards{Filter: v.Filter} }

// CardsInControllerGraveyard counts matching cards in the source controller's graveyard.
type CardsInControllerGraveyard struct {
	Filter *object.Filter
}

func (v *CardsInControllerGraveyard) Calculate(g Game, src Source) int {
	return countMatching(g.ObjectsIn(object.ZoneGraveyard), v.Filter, src, src.ControllerID)
}

func (v *CardsInControllerGraveyard) Message() string {
	return v.Filter.String() + "s in your graveyard"
}

func (v *CardsInControllerGraveyard) Copy() DynamicValue {
	return &CardsInControllerGraveyard{Filter: v.Filter}
}

// PermanentsOnBattlefield counts matching permanents.
type PermanentsOnBattlefield struct {
	Filter *object.Filter
}

func (v *PermanentsOnBattlefield) Calculate(g Game, src Source) int {
	return countMatching(g.ObjectsIn(object.ZoneBattlefield), v.Filter, src, "")
}

func (v *PermanentsOnBattlefield) Message() string {
	return v.Filter.String() + " on the battlefield"
}

func (v *PermanentsOnBattlefield) Copy() DynamicValue {
	return &PermanentsOnBattlefield{Filter: v.Filter}
}

// CountersOnSource counts counters of one kind on the source. If the source
// has left its zone the last known count is used, and 0 if nothing is known.
type CountersOnSource struct {
	Counter string
}

func (v *CountersOnSource) Calculate(g Game, src Source) int {
	if s, ok := sourceSnapshot(g, src); ok {
		return s.CounterCount(v.Counter)
	}
	return 0
}

func (v *CountersOnSource) Message() string    { return v.Counter + " counter on it" }
func (v *CountersOnSource) Copy() DynamicValue { return &CountersOnSource{Counter: v.Counter} }

// SourcePower is the source's power, with the same last-known fallback as CountersOnSource.
type SourcePower struct{}

func (SourcePower) Calculate(g Game, src Source) int {
	if s, ok := sourceSnapshot(g, src); ok {
		return s.Power
	}
	return 0
}

func (SourcePower) Message() string    { return "its power" }
func (SourcePower) Copy() DynamicValue { return SourcePower{} }

// ControllerLife is the source controller's life total, 0 if the player is gone.
type ControllerLife struct{}

func (ControllerLife) Calculate(g Game, src Source) int {
	life, _ := g.PlayerLife(src.ControllerID)
	return life
}

func (ControllerLife) Message() string    { return "your life total" }
func (ControllerLife) Copy() DynamicValue { return ControllerLife{} }

// Counted is implemented by watchers that count something this turn.
type Counted interface {
	Count() int
}

// WatcherCount reads a counting watcher by key; missing watchers count 0.
type WatcherCount struct {
	Key  string
	Text string
}

// CreaturesDiedThisTurn counts creatures that died this turn.
func CreaturesDiedThisTurn() *WatcherCount {
	return &WatcherCount{Key: "CreaturesDied", Text: "creatures that died this turn"}
}

// SpellsCastThisTurn counts spells cast this turn by all players.
func SpellsCastThisTurn() *WatcherCount {
	return &WatcherCount{Key: "SpellsCast", Text: "spells cast this turn"}
}

func (v *WatcherCount) Calculate(g Game, _ Source) int {
	w, ok := g.Watcher(v.Key)
	if !ok {
		return 0
	}
	if c, ok := w.(Counted); ok {
		return c.Count()
	}
	return 0
}

func (v *WatcherCount) Message() string    { return v.Text }
func (v *WatcherCount) Copy() DynamicValue { cp := *v; return &cp }

// Sum adds several values.
type Sum []DynamicValue

func (v Sum) Calculate(g Game, src Source) int {
	total := 0
	for _, part := range v {
		total += part.Calculate(g, src)
	}
	return total
}

func (v Sum) Message() string {
	if len(v) == 0 {
		return ""
	}
	return v[0].Message()
}

func (v Sum) Copy() DynamicValue {
	out := make(Sum, len(v))
	for i, part := range v {
		out[i] = part.Copy()
	}
	return out
}

// Multiply scales a value by a fixed factor.
type Multiply struct {
	Value  DynamicValue
	Factor int
}

func (v Multiply) Calculate(g Game, src Source) int { return v.Value.Calculate(g, src) * v.Factor }
func (v Multiply) Message() string                  { return v.Value.Message() }
func (v Multiply) Copy() DynamicValue               { return Multiply{Value: v.Value.Copy(), Factor: v.Factor} }

// Negate flips the sign of a value, for "-X/-X" effects.
func Negate(v DynamicValue) DynamicValue {
	return Multiply{Value: v, Factor: -1}
}

func countMatching(objs []*object.Snapshot, filter *object.Filter, src Source, ownerID string) int {
	ctx := src.FilterContext()
	n := 0
	for _, o := range objs {
		if ownerID != "" && o.OwnerID != ownerID {
			continue
		}
		if filter.Match(o, ctx) {
			n++
		}
	}
	return n
}

func sourceSnapshot(g Game, src Source) (*object.Snapshot, bool) {
	if s, ok := g.Object(src.ID); ok && s.Zone == object.ZoneBattlefield {
		return s, true
	}
	return g.LastKnown(src.ID)
}
