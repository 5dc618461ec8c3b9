package values

import (
	"fmt"

	"github.com/magefree/mage-engine-go/internal/game/object"
)

// Condition is a yes/no question about the game, used by intervening-if
// clauses and conditional static abilities.
type Condition interface {
	Apply(g Game, src Source) bool
	String() string
}

// YourTurn holds during the turns of the source's controller.
type YourTurn struct{}

func (YourTurn) Apply(g Game, src Source) bool { return g.ActivePlayerID() == src.ControllerID }
func (YourTurn) String() string                 { return "it's your turn" }

// ControlsPermanent holds when the source's controller controls at least Min
// permanents matching Filter.
type ControlsPermanent struct {
	Filter *object.Filter
	Min    int
}

func (c ControlsPermanent) Apply(g Game, src Source) bool {
	ctx := src.FilterContext()
	n := 0
	for _, p := range g.ObjectsIn(object.ZoneBattlefield) {
		if p.ControllerID == src.ControllerID && c.Filter.Match(p, ctx) {
			n++
		}
	}
	return n >= max(c.Min, 1)
}

func (c ControlsPermanent) String() string {
	if c.Min > 1 {
		return fmt.Sprintf("you control %d or more %ss", c.Min, c.Filter)
	}
	return "you control a " + c.Filter.String()
}

// SourceOnBattlefield holds while the source is a permanent.
type SourceOnBattlefield struct{}

func (SourceOnBattlefield) Apply(g Game, src Source) bool {
	s, ok := g.Object(src.ID)
	return ok && s.Zone == object.ZoneBattlefield
}

func (SourceOnBattlefield) String() string { return "it's on the battlefield" }

// ValueAtLeast compares a dynamic value against a threshold.
type ValueAtLeast struct {
	Value DynamicValue
	Min   int
}

func (c ValueAtLeast) Apply(g Game, src Source) bool {
	return c.Value.Calculate(g, src) >= c.Min
}

func (c ValueAtLeast) String() string {
	return fmt.Sprintf("there are %d or more %s", c.Min, c.Value.Message())
}

// Not inverts a condition.
type Not struct {
	Condition Condition
}

func (c Not) Apply(g Game, src Source) bool { return !c.Condition.Apply(g, src) }
func (c Not) String() string                 { return "not " + c.Condition.String() }
