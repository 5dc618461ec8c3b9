package game

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/counters"
	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// Effect is a one-shot effect: it does something once when its spell or
// ability resolves.
type Effect interface {
	Apply(g *Game, ctx *EffectContext) error
	Text() string
	Copy() Effect
}

// EffectContext is what a resolving spell or ability knows about itself.
type EffectContext struct {
	Source values.Source
	// Targets holds the still-legal targets, one group per requirement.
	Targets [][]string
	X       int
	// Event is the triggering event of a triggered ability.
	Event         *rules.Event
	StackObjectID string
}

// Target returns the targets chosen for requirement i.
func (c *EffectContext) Target(i int) []string {
	if i < 0 || i >= len(c.Targets) {
		return nil
	}
	return c.Targets[i]
}

// Recipient selects the players an effect applies to.
type Recipient int

const (
	Controller Recipient = iota
	TargetPlayer
	EachOpponent
	EachPlayer
	// TriggeringPlayer is the player named by the triggering event.
	TriggeringPlayer
)

func (r Recipient) String() string {
	switch r {
	case TargetPlayer:
		return "target player"
	case EachOpponent:
		return "each opponent"
	case EachPlayer:
		return "each player"
	case TriggeringPlayer:
		return "that player"
	}
	return "you"
}

// players resolves the recipient in APNAP order.
func (r Recipient) players(g *Game, ctx *EffectContext) []string {
	var out []string
	switch r {
	case Controller:
		out = []string{ctx.Source.ControllerID}
	case TargetPlayer:
		for _, group := range ctx.Targets {
			for _, id := range group {
				if _, ok := g.players[id]; ok {
					out = append(out, id)
				}
			}
		}
	case EachOpponent:
		for _, id := range g.apnap() {
			if id != ctx.Source.ControllerID {
				out = append(out, id)
			}
		}
	case EachPlayer:
		out = g.apnap()
	case TriggeringPlayer:
		if ctx.Event != nil && ctx.Event.PlayerID != "" {
			out = []string{ctx.Event.PlayerID}
		}
	}
	var alive []string
	for _, id := range out {
		if p, ok := g.players[id]; ok && p.inGame() {
			alive = append(alive, id)
		}
	}
	return alive
}

func amount(g *Game, v values.DynamicValue, ctx *EffectContext) int {
	if v == nil {
		return ctx.X
	}
	return v.Calculate(g, ctx.Source)
}

func copyValue(v values.DynamicValue) values.DynamicValue {
	if v == nil {
		return nil
	}
	return v.Copy()
}

// DrawCards makes players draw cards. A nil Amount draws X.
type DrawCards struct {
	Who    Recipient
	Amount values.DynamicValue
}

func (e DrawCards) Apply(g *Game, ctx *EffectContext) error {
	n := amount(g, e.Amount, ctx)
	for _, id := range e.Who.players(g, ctx) {
		g.drawCards(id, n, ctx.Source.ID)
	}
	return nil
}

func (e DrawCards) Text() string {
	if e.Who == Controller {
		return fmt.Sprintf("draw %s card(s)", valueText(e.Amount))
	}
	return fmt.Sprintf("%s draws %s card(s)", e.Who, valueText(e.Amount))
}

func (e DrawCards) Copy() Effect { return DrawCards{Who: e.Who, Amount: copyValue(e.Amount)} }

// GainLife makes players gain life.
type GainLife struct {
	Who    Recipient
	Amount values.DynamicValue
}

func (e GainLife) Apply(g *Game, ctx *EffectContext) error {
	n := amount(g, e.Amount, ctx)
	for _, id := range e.Who.players(g, ctx) {
		g.gainLife(id, n, ctx.Source.ID)
	}
	return nil
}

func (e GainLife) Text() string { return fmt.Sprintf("%s gain %s life", e.Who, valueText(e.Amount)) }
func (e GainLife) Copy() Effect { return GainLife{Who: e.Who, Amount: copyValue(e.Amount)} }

// LoseLife makes players lose life.
type LoseLife struct {
	Who    Recipient
	Amount values.DynamicValue
}

func (e LoseLife) Apply(g *Game, ctx *EffectContext) error {
	n := amount(g, e.Amount, ctx)
	for _, id := range e.Who.players(g, ctx) {
		g.loseLife(id, n, ctx.Source.ID)
	}
	return nil
}

func (e LoseLife) Text() string { return fmt.Sprintf("%s lose %s life", e.Who, valueText(e.Amount)) }
func (e LoseLife) Copy() Effect { return LoseLife{Who: e.Who, Amount: copyValue(e.Amount)} }

// DealDamage deals damage to every target of requirement TargetIndex, or to
// the players selected by Players when it is set.
type DealDamage struct {
	Amount      values.DynamicValue
	TargetIndex int
	Players     *Recipient
}

func (e DealDamage) Apply(g *Game, ctx *EffectContext) error {
	n := amount(g, e.Amount, ctx)
	var ids []string
	if e.Players != nil {
		ids = e.Players.players(g, ctx)
	} else {
		ids = ctx.Target(e.TargetIndex)
	}
	for _, id := range ids {
		g.dealDamage(id, n, ctx.Source.ID)
	}
	return nil
}

func (e DealDamage) Text() string {
	if e.Players != nil {
		return fmt.Sprintf("deals %s damage to %s", valueText(e.Amount), e.Players)
	}
	return fmt.Sprintf("deals %s damage to target", valueText(e.Amount))
}

func (e DealDamage) Copy() Effect {
	cp := e
	cp.Amount = copyValue(e.Amount)
	return cp
}

// Destroy destroys the targets of requirement TargetIndex.
type Destroy struct {
	TargetIndex int
}

func (e Destroy) Apply(g *Game, ctx *EffectContext) error {
	for _, id := range ctx.Target(e.TargetIndex) {
		g.destroy(id, ctx.Source.ID)
	}
	return nil
}

func (e Destroy) Text() string { return "destroy target" }
func (e Destroy) Copy() Effect { return e }

// CounterSpell counters the target spells or abilities of requirement TargetIndex.
type CounterSpell struct {
	TargetIndex int
}

func (e CounterSpell) Apply(g *Game, ctx *EffectContext) error {
	for _, id := range ctx.Target(e.TargetIndex) {
		if _, err := g.CounterStackObject(id, ctx.Source.ID); err != nil {
			return err
		}
	}
	return nil
}

func (e CounterSpell) Text() string { return "counter target spell" }
func (e CounterSpell) Copy() Effect { return e }

// CreateTokens creates Amount tokens from Token under the controller's control.
type CreateTokens struct {
	Token  CardSpec
	Amount values.DynamicValue
}

func (e CreateTokens) Apply(g *Game, ctx *EffectContext) error {
	n := amount(g, e.Amount, ctx)
	for range n {
		g.createToken(ctx.Source.ControllerID, e.Token, ctx.Source.ID)
	}
	return nil
}

func (e CreateTokens) Text() string {
	return fmt.Sprintf("create %s %s token(s)", valueText(e.Amount), e.Token.Characteristics.Name)
}

func (e CreateTokens) Copy() Effect { return CreateTokens{Token: e.Token, Amount: copyValue(e.Amount)} }

// AddCounters puts counters on the source, or on the targets of requirement
// TargetIndex when OnTargets is set.
type AddCounters struct {
	Counter     counters.CounterType
	Amount      values.DynamicValue
	OnTargets   bool
	TargetIndex int
}

func (e AddCounters) Apply(g *Game, ctx *EffectContext) error {
	n := amount(g, e.Amount, ctx)
	ids := []string{ctx.Source.ID}
	if e.OnTargets {
		ids = ctx.Target(e.TargetIndex)
	}
	for _, id := range ids {
		if _, ok := g.players[id]; ok && e.Counter == counters.Poison {
			g.addPoison(id, n, ctx.Source.ID)
			continue
		}
		if c, ok := g.cards[id]; ok && c.zone == object.ZoneBattlefield {
			g.addCounters(c, string(e.Counter), n, ctx.Source.ID)
		}
	}
	return nil
}

func (e AddCounters) Text() string {
	return fmt.Sprintf("put %s %s counter(s)", valueText(e.Amount), e.Counter)
}

func (e AddCounters) Copy() Effect {
	cp := e
	cp.Amount = copyValue(e.Amount)
	return cp
}

// Monstrosity puts N +1/+1 counters on a permanent that isn't monstrous and
// makes it monstrous.
type Monstrosity struct {
	N values.DynamicValue
}

func (e Monstrosity) Apply(g *Game, ctx *EffectContext) error {
	c, ok := g.cards[ctx.Source.ID]
	if !ok || c.zone != object.ZoneBattlefield || c.monstrous {
		g.logger.Debug("monstrosity does nothing",
			zap.String("game_id", g.id),
			zap.String("source_id", ctx.Source.ID))
		return nil
	}
	n := amount(g, e.N, ctx)
	g.addCounters(c, string(counters.P1P1), n, c.id)
	c.monstrous = true
	g.fire(rules.NewAmountEvent(rules.EventBecameMonstrous, c.id, c.id, c.controllerID, n))
	return nil
}

func (e Monstrosity) Text() string { return fmt.Sprintf("Monstrosity %s", valueText(e.N)) }
func (e Monstrosity) Copy() Effect { return Monstrosity{N: copyValue(e.N)} }

// AddExtraTurn gives the controller an extra turn after this one.
type AddExtraTurn struct{}

func (AddExtraTurn) Apply(g *Game, ctx *EffectContext) error {
	g.addTurnMod(rules.TurnMod{PlayerID: ctx.Source.ControllerID, SourceID: ctx.Source.ID, Kind: rules.ModExtraTurn})
	return nil
}

func (AddExtraTurn) Text() string { return "take an extra turn after this one" }
func (AddExtraTurn) Copy() Effect { return AddExtraTurn{} }

// SkipNextUntap makes players skip their next untap step.
type SkipNextUntap struct {
	Who Recipient
}

func (e SkipNextUntap) Apply(g *Game, ctx *EffectContext) error {
	for _, id := range e.Who.players(g, ctx) {
		g.addTurnMod(rules.TurnMod{PlayerID: id, SourceID: ctx.Source.ID, Kind: rules.ModSkipStep, Step: rules.StepUntap})
	}
	return nil
}

func (e SkipNextUntap) Text() string { return e.Who.String() + " skip the next untap step" }
func (e SkipNextUntap) Copy() Effect { return e }

// ContinuousBuilder creates the continuous effects of a resolving spell or
// ability from its source and targets.
type ContinuousBuilder func(src values.Source, targets [][]string) []effects.ContinuousEffect

// ApplyContinuous adds continuous effects when it resolves. Effects scoped by
// a filter are locked to the objects matching at resolution, and dynamic
// boosts are locked to their value at resolution.
type ApplyContinuous struct {
	Description string
	Build       ContinuousBuilder
}

type lockable interface {
	Scope() effects.Scope
	LockTo(ids []string)
}

func (e ApplyContinuous) Apply(g *Game, ctx *EffectContext) error {
	for _, ce := range e.Build(ctx.Source, ctx.Targets) {
		if l, ok := ce.(lockable); ok {
			scope := l.Scope()
			if scope.Filter != nil && !scope.SourceOnly && len(scope.ObjectIDs) == 0 {
				fctx := ctx.Source.FilterContext()
				var ids []string
				for _, s := range g.ObjectsIn(object.ZoneBattlefield) {
					if scope.Matches(s, fctx) {
						ids = append(ids, s.ID)
					}
				}
				l.LockTo(ids)
			}
		}
		if b, ok := ce.(*effects.BoostEffect); ok {
			b.Power = values.Static(b.Power.Calculate(g, ctx.Source))
			b.Toughness = values.Static(b.Toughness.Calculate(g, ctx.Source))
		}
		g.layers.AddEffect(ce, g.nextTimestamp())
	}
	return nil
}

func (e ApplyContinuous) Text() string { return e.Description }
func (e ApplyContinuous) Copy() Effect { return e }

// Boost is the common "target creature gets +P/+T until end of turn".
func Boost(power, toughness int, targetIndex int) ApplyContinuous {
	return ApplyContinuous{
		Description: fmt.Sprintf("target creature gets %+d/%+d until end of turn", power, toughness),
		Build: func(src values.Source, targets [][]string) []effects.ContinuousEffect {
			if targetIndex >= len(targets) || len(targets[targetIndex]) == 0 {
				return nil
			}
			return []effects.ContinuousEffect{
				effects.NewFixedBoostEffect(src.ID, src.ControllerID, effects.Objects(targets[targetIndex]...), effects.DurationEndOfTurn, power, toughness),
			}
		},
	}
}

// ReturnToHand returns the targets of requirement TargetIndex to their owners' hands.
type ReturnToHand struct {
	TargetIndex int
}

func (e ReturnToHand) Apply(g *Game, ctx *EffectContext) error {
	for _, id := range ctx.Target(e.TargetIndex) {
		if c, ok := g.cards[id]; ok {
			g.moveCard(c, object.ZoneHand, ctx.Source.ID)
		}
	}
	return nil
}

func (e ReturnToHand) Text() string { return "return target to its owner's hand" }
func (e ReturnToHand) Copy() Effect { return e }

// AddMana adds mana to the controller's pool.
type AddMana struct {
	Type   mana.ManaType
	Amount int
}

func (e AddMana) Apply(g *Game, ctx *EffectContext) error {
	p, ok := g.players[ctx.Source.ControllerID]
	if !ok {
		return rules.Invariantf("AddMana", "unknown player %s", ctx.Source.ControllerID)
	}
	p.pool.Add(e.Type, e.Amount)
	return nil
}

func (e AddMana) Text() string { return fmt.Sprintf("add %s", strings.Repeat("{"+string(e.Type)+"}", e.Amount)) }
func (e AddMana) Copy() Effect { return e }

// PreventDamage creates a prevention shield on the targets of requirement
// TargetIndex. A Shield of 0 prevents all damage this turn.
type PreventDamage struct {
	Shield      int
	TargetIndex int
}

func (e PreventDamage) Apply(g *Game, ctx *EffectContext) error {
	for _, id := range ctx.Target(e.TargetIndex) {
		g.replacements.AddEffect(effects.NewPreventDamageEffect(ctx.Source.ID, ctx.Source.ControllerID, id, e.Shield, effects.DurationEndOfTurn), g.nextTimestamp())
	}
	return nil
}

func (e PreventDamage) Text() string {
	if e.Shield <= 0 {
		return "prevent all damage that would be dealt to target this turn"
	}
	return fmt.Sprintf("prevent the next %d damage that would be dealt to target this turn", e.Shield)
}

func (e PreventDamage) Copy() Effect { return e }

// CreateEmblem gives the controller an emblem with the given abilities.
type CreateEmblem struct {
	Name      string
	Abilities []Ability
}

func (e CreateEmblem) Apply(g *Game, ctx *EffectContext) error {
	g.createEmblem(ctx.Source.ControllerID, e.Name, e.Abilities)
	return nil
}

func (e CreateEmblem) Text() string { return "you get an emblem: " + e.Name }
func (e CreateEmblem) Copy() Effect { return e }

func valueText(v values.DynamicValue) string {
	if v == nil {
		return "X"
	}
	if s, ok := v.(values.Static); ok {
		return s.String()
	}
	return "X"
}

// Manifest puts the top card of the controller's library onto the
// battlefield face down as a 2/2 creature.
type Manifest struct{}

func (Manifest) Apply(g *Game, ctx *EffectContext) error {
	g.manifest(ctx.Source.ControllerID, ctx.Source.ID)
	return nil
}

func (Manifest) Text() string { return "manifest the top card of your library" }
func (Manifest) Copy() Effect { return Manifest{} }
