package game

import (
	"fmt"

	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// Cost is something a player pays to activate an ability. CanPay never
// changes the game; Pay is only called after every cost of the ability
// reported it can be paid.
type Cost interface {
	CanPay(g *Game, src values.Source) bool
	Pay(g *Game, src values.Source, x int) error
	Text() string
	Copy() Cost
}

// ManaCost is paid from the controller's mana pool. Mana abilities are
// activated first to fill the pool.
type ManaCost struct {
	Cost *mana.Cost
}

// NewManaCost parses a mana cost string such as "{1}{G}".
func NewManaCost(s string) ManaCost {
	return ManaCost{Cost: mana.MustParseCost(s)}
}

func (c ManaCost) CanPay(g *Game, src values.Source) bool {
	p, ok := g.players[src.ControllerID]
	return ok && p.pool.CanPay(c.Cost, 0)
}

func (c ManaCost) Pay(g *Game, src values.Source, x int) error {
	p, ok := g.players[src.ControllerID]
	if !ok {
		return rules.Invariantf("ManaCost.Pay", "unknown player %s", src.ControllerID)
	}
	if err := p.pool.Pay(c.Cost, x); err != nil {
		return rules.IllegalActionf(src.ControllerID, "cannot pay %s: %v", c.Cost, err)
	}
	return nil
}

func (c ManaCost) Text() string { return c.Cost.String() }
func (c ManaCost) Copy() Cost   { return ManaCost{Cost: c.Cost.Copy()} }

// TapSource is the {T} cost. Creatures can't pay it the turn they came under
// their controller's control unless they have haste.
type TapSource struct{}

func (TapSource) CanPay(g *Game, src values.Source) bool {
	c, ok := g.cards[src.ID]
	if !ok || c.zone != object.ZoneBattlefield || c.tapped {
		return false
	}
	s, _ := g.Object(src.ID)
	if c.summoningSick && s.IsCreature() && !s.HasAbility("Haste") {
		return false
	}
	return true
}

func (TapSource) Pay(g *Game, src values.Source, _ int) error {
	c, ok := g.cards[src.ID]
	if !ok {
		return rules.Invariantf("TapSource.Pay", "unknown source %s", src.ID)
	}
	g.tap(c)
	return nil
}

func (TapSource) Text() string { return "{T}" }
func (TapSource) Copy() Cost   { return TapSource{} }

// Sacrifice sacrifices a permanent matching Filter. A nil filter sacrifices
// the source itself.
type Sacrifice struct {
	Filter *object.Filter
}

func (c Sacrifice) CanPay(g *Game, src values.Source) bool {
	return len(c.candidates(g, src)) > 0
}

func (c Sacrifice) Pay(g *Game, src values.Source, _ int) error {
	candidates := c.candidates(g, src)
	if len(candidates) == 0 {
		return rules.IllegalActionf(src.ControllerID, "nothing to sacrifice for %s", c.Text())
	}
	choice := candidates[0]
	if c.Filter != nil && len(candidates) > 1 {
		picked := g.chooseObjects(src.ControllerID, candidates, 1, "Choose a permanent to sacrifice")
		if len(picked) == 1 {
			choice = picked[0]
		}
	}
	g.sacrifice(g.cards[choice], src.ID)
	return nil
}

func (c Sacrifice) candidates(g *Game, src values.Source) []string {
	if c.Filter == nil {
		if card, ok := g.cards[src.ID]; ok && card.zone == object.ZoneBattlefield && g.controllerOf(src.ID) == src.ControllerID {
			return []string{src.ID}
		}
		return nil
	}
	var ids []string
	ctx := src.FilterContext()
	for _, s := range g.ObjectsIn(object.ZoneBattlefield) {
		if s.ControllerID == src.ControllerID && c.Filter.Match(s, ctx) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func (c Sacrifice) Text() string {
	if c.Filter == nil {
		return "Sacrifice this"
	}
	return "Sacrifice a " + c.Filter.String()
}

func (c Sacrifice) Copy() Cost { return c }

// PayLife pays life. A player can't pay more life than they have.
type PayLife struct {
	Amount int
}

func (c PayLife) CanPay(g *Game, src values.Source) bool {
	p, ok := g.players[src.ControllerID]
	return ok && p.life >= c.Amount
}

func (c PayLife) Pay(g *Game, src values.Source, _ int) error {
	p := g.players[src.ControllerID]
	p.life -= c.Amount
	g.fire(rules.NewAmountEvent(rules.EventLostLife, p.id, src.ID, p.id, c.Amount))
	return nil
}

func (c PayLife) Text() string { return fmt.Sprintf("Pay %d life", c.Amount) }
func (c PayLife) Copy() Cost   { return c }
