package game

import (
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/targeting"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// ActionType is the kind of a player action.
type ActionType string

const (
	ActionPass            ActionType = "PASS"
	ActionCastSpell       ActionType = "CAST_SPELL"
	ActionActivateAbility ActionType = "ACTIVATE_ABILITY"
	ActionPlayLand        ActionType = "PLAY_LAND"
	ActionOrderTriggers   ActionType = "ORDER_TRIGGERS"
	ActionConcede         ActionType = "CONCEDE"
	// ActionTimeout is submitted by the table when a player runs out of time.
	ActionTimeout ActionType = "TIMEOUT"
)

// PlayerAction is one input from a player. Targets hold one group per
// target requirement of the spell or ability.
type PlayerAction struct {
	PlayerID   string     `json:"player_id" mapstructure:"player_id"`
	ActionType ActionType `json:"action_type" mapstructure:"action_type"`
	ObjectID   string     `json:"object_id,omitempty" mapstructure:"object_id"`
	AbilityID  string     `json:"ability_id,omitempty" mapstructure:"ability_id"`
	Targets    [][]string `json:"targets,omitempty" mapstructure:"targets"`
	X          int        `json:"x,omitempty" mapstructure:"x"`
	// Order answers a trigger ordering request; the first id goes on the stack first.
	Order     []string  `json:"order,omitempty" mapstructure:"order"`
	Timestamp time.Time `json:"timestamp" mapstructure:"-"`
}

// ProcessAction validates and applies a player action. An illegal action
// returns an *rules.IllegalActionError and changes nothing. An invariant
// violation halts the game.
func (g *Game) ProcessAction(a PlayerAction) error {
	if g.state == StateHalted {
		return g.halted
	}
	if g.state != StateRunning {
		return rules.IllegalActionf(a.PlayerID, "game is %s", g.state)
	}
	if !g.PlayerInGame(a.PlayerID) {
		return rules.IllegalAction(a.PlayerID, "player is not in the game")
	}
	if req := g.triggers.Awaiting(); req != nil {
		switch a.ActionType {
		case ActionOrderTriggers, ActionConcede, ActionTimeout:
		default:
			return rules.IllegalActionf(a.PlayerID, "waiting for %s to order triggered abilities", req.PlayerID)
		}
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	mark := g.log.Len()
	g.log.recordAction(a)
	var err error
	switch a.ActionType {
	case ActionPass:
		err = g.pass(a)
	case ActionCastSpell:
		err = g.cast(a)
	case ActionActivateAbility:
		err = g.activate(a)
	case ActionPlayLand:
		err = g.playLand(a)
	case ActionOrderTriggers:
		err = g.orderTriggers(a)
	case ActionConcede:
		err = g.concede(a)
	case ActionTimeout:
		err = g.timeout(a)
	default:
		err = rules.IllegalActionf(a.PlayerID, "unknown action %q", a.ActionType)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, rules.ErrInvariantViolation) {
		return g.fail(err)
	}
	g.log.truncate(mark)
	g.logger.Debug("illegal action",
		zap.String("player_id", a.PlayerID),
		zap.String("action_type", string(a.ActionType)),
		zap.Error(err))
	return err
}

func (g *Game) holdsPriority(playerID string) error {
	if g.priority.Holder() != playerID {
		return rules.IllegalAction(playerID, rules.ErrNotPriorityHolder.Reason)
	}
	return nil
}

// sorceryTiming reports whether playerID could cast a sorcery now (307.1).
func (g *Game) sorceryTiming(playerID string) bool {
	return g.turn.ActivePlayer() == playerID && g.turn.CurrentStep().IsMain() && g.stack.IsEmpty()
}

func (g *Game) pass(a PlayerAction) error {
	outcome, err := g.priority.Pass(a.PlayerID, g.stack.IsEmpty())
	if err != nil {
		if errors.Is(err, rules.ErrNotPriorityHolder) {
			return rules.IllegalAction(a.PlayerID, rules.ErrNotPriorityHolder.Reason)
		}
		return err
	}
	switch outcome {
	case rules.PassResolve:
		return g.resolveTop()
	case rules.PassAdvance:
		return g.advance()
	}
	return nil
}

// castPlan is a validated spell cast waiting to be committed.
type castPlan struct {
	card    *Card
	snap    *object.Snapshot
	ability *SpellAbility
	cost    *mana.Cost
	targets [][]string
}

func (g *Game) prepareCast(a PlayerAction) (*castPlan, error) {
	c, ok := g.cards[a.ObjectID]
	if !ok || c.zone != object.ZoneHand || c.ownerID != a.PlayerID {
		return nil, rules.IllegalAction(a.PlayerID, "card is not in your hand")
	}
	s := g.evaluate(c)
	if s.HasType(object.TypeLand) {
		return nil, rules.IllegalAction(a.PlayerID, "lands are played, not cast")
	}
	if err := g.holdsPriority(a.PlayerID); err != nil {
		return nil, err
	}
	if !s.HasType(object.TypeInstant) && !s.HasAbility("Flash") && !g.sorceryTiming(a.PlayerID) {
		return nil, rules.IllegalActionf(a.PlayerID, "%s can only be cast at sorcery speed", s.Name)
	}
	sa := c.spellAbility()
	if sa == nil {
		return nil, rules.Invariantf("prepareCast", "card %s has no spell ability", c.id)
	}
	src := values.Source{ID: c.id, ControllerID: a.PlayerID}
	if err := g.checkTargets(a, sa.targets, src); err != nil {
		return nil, err
	}
	if rule, prevented := g.replacements.IsPrevented(g, rules.NewEvent(rules.EventCastSpell, c.id, c.id, a.PlayerID)); prevented {
		return nil, rules.IllegalActionf(a.PlayerID, "can't cast %s: %s", s.Name, rule.Text())
	}
	cost, err := mana.ParseCost(s.ManaCost)
	if err != nil {
		return nil, rules.Invariantf("prepareCast", "%s: %v", s.Name, err)
	}
	if a.X < 0 || (a.X > 0 && cost.X == 0) {
		return nil, rules.IllegalActionf(a.PlayerID, "invalid X %d for %s", a.X, s.Name)
	}
	if !g.players[a.PlayerID].pool.CanPay(cost, a.X) {
		return nil, rules.IllegalActionf(a.PlayerID, "not enough mana to pay %s", cost.WithX(a.X))
	}
	return &castPlan{card: c, snap: s, ability: sa, cost: cost, targets: cloneTargets(a.Targets, len(sa.targets))}, nil
}

// cast puts a spell on the stack (601.2): announce, choose targets, pay.
func (g *Game) cast(a PlayerAction) error {
	plan, err := g.prepareCast(a)
	if err != nil {
		return err
	}
	p := g.players[a.PlayerID]
	if err := p.pool.Pay(plan.cost, a.X); err != nil {
		return rules.Invariantf("cast", "pay %s after CanPay: %v", plan.cost, err)
	}
	c := plan.card
	so := &StackObject{
		id:           c.id,
		kind:         rules.StackItemKindSpell,
		sourceID:     c.id,
		controllerID: a.PlayerID,
		ability:      plan.ability,
		targets:      plan.targets,
		x:            a.X,
		source:       plan.snap,
	}
	g.stack.Push(so)
	if !g.moveCardUnder(c, object.ZoneStack, c.id, a.PlayerID) {
		g.stack.Remove(so.id)
		return rules.Invariantf("cast", "%s could not be put on the stack", plan.snap.Name)
	}
	g.fire(rules.NewEvent(rules.EventSpellCast, c.id, c.id, a.PlayerID))
	g.status("%s casts %s", p.name, plan.snap.Name)
	return g.givePriority(a.PlayerID)
}

type activationPlan struct {
	card    *Card
	ability *ActivatedAbility
	src     values.Source
	targets [][]string
}

func (g *Game) prepareActivation(a PlayerAction) (*activationPlan, error) {
	c, ok := g.cards[a.ObjectID]
	if !ok {
		return nil, rules.IllegalActionf(a.PlayerID, "unknown object %s", a.ObjectID)
	}
	ab, ok := c.ability(a.AbilityID)
	aa, activated := ab.(*ActivatedAbility)
	if !ok || !activated {
		return nil, rules.IllegalActionf(a.PlayerID, "object has no activated ability %s", a.AbilityID)
	}
	if !aa.zone.Includes(c.zone) {
		return nil, rules.IllegalActionf(a.PlayerID, "ability can't be activated from the %s", c.zone)
	}
	s := g.evaluate(c)
	if s.ControllerID != a.PlayerID {
		return nil, rules.IllegalAction(a.PlayerID, "you don't control that object")
	}
	if c.zone == object.ZoneBattlefield && aa.Text() != "" && !s.HasAbility(aa.Text()) {
		return nil, rules.IllegalActionf(a.PlayerID, "%s has lost that ability", s.Name)
	}
	if err := g.holdsPriority(a.PlayerID); err != nil {
		return nil, err
	}
	if aa.timing == TimingSorcery && !g.sorceryTiming(a.PlayerID) {
		return nil, rules.IllegalAction(a.PlayerID, "ability can only be activated at sorcery speed")
	}
	src := values.Source{ID: c.id, ControllerID: a.PlayerID}
	if aa.condition != nil && !aa.condition.Apply(g, src) {
		return nil, rules.IllegalActionf(a.PlayerID, "activate only %s", aa.condition)
	}
	if err := g.checkTargets(a, aa.targets, src); err != nil {
		return nil, err
	}
	if rule, prevented := g.replacements.IsPrevented(g, rules.NewEvent(rules.EventActivateAbility, c.id, c.id, a.PlayerID)); prevented {
		return nil, rules.IllegalActionf(a.PlayerID, "can't activate: %s", rule.Text())
	}
	for _, cost := range aa.costs {
		if !cost.CanPay(g, src) {
			return nil, rules.IllegalActionf(a.PlayerID, "can't pay %s", cost.Text())
		}
	}
	return &activationPlan{card: c, ability: aa, src: src, targets: cloneTargets(a.Targets, len(aa.targets))}, nil
}

// activate activates an ability (602.2). Mana abilities resolve at once and
// don't use the stack (605.3).
func (g *Game) activate(a PlayerAction) error {
	plan, err := g.prepareActivation(a)
	if err != nil {
		return err
	}
	aa := plan.ability
	for _, cost := range aa.costs {
		if err := cost.Pay(g, plan.src, a.X); err != nil {
			return rules.Invariantf("activate", "pay %s after CanPay: %v", cost.Text(), err)
		}
	}
	if aa.manaAbility {
		ctx := &EffectContext{Source: plan.src, Targets: plan.targets, X: a.X}
		for _, e := range aa.effects {
			if err := e.Apply(g, ctx); err != nil {
				return rules.Invariantf("activate", "mana ability %s: %v", aa.Text(), err)
			}
		}
		g.fire(rules.NewEvent(rules.EventActivatedAbility, aa.ID(), plan.card.id, a.PlayerID))
		return nil
	}
	so := &StackObject{
		id:           g.nextID("stack"),
		kind:         rules.StackItemKindActivated,
		sourceID:     plan.card.id,
		controllerID: a.PlayerID,
		ability:      aa,
		targets:      plan.targets,
		x:            a.X,
		source:       g.evaluate(plan.card),
	}
	g.stack.Push(so)
	g.fire(rules.NewEvent(rules.EventActivatedAbility, so.id, plan.card.id, a.PlayerID))
	g.status("%s activates %s", g.players[a.PlayerID].name, so.Description())
	return g.givePriority(a.PlayerID)
}

func (g *Game) preparePlayLand(a PlayerAction) (*Card, error) {
	c, ok := g.cards[a.ObjectID]
	if !ok || c.zone != object.ZoneHand || c.ownerID != a.PlayerID {
		return nil, rules.IllegalAction(a.PlayerID, "card is not in your hand")
	}
	if !g.evaluate(c).HasType(object.TypeLand) {
		return nil, rules.IllegalAction(a.PlayerID, "card is not a land")
	}
	if err := g.holdsPriority(a.PlayerID); err != nil {
		return nil, err
	}
	if !g.sorceryTiming(a.PlayerID) {
		return nil, rules.IllegalAction(a.PlayerID, "lands can only be played in your main phase with an empty stack")
	}
	if g.players[a.PlayerID].landsPlayed >= 1 {
		return nil, rules.IllegalAction(a.PlayerID, "you already played a land this turn")
	}
	if rule, prevented := g.replacements.IsPrevented(g, rules.NewEvent(rules.EventPlayLand, c.id, c.id, a.PlayerID)); prevented {
		return nil, rules.IllegalActionf(a.PlayerID, "can't play land: %s", rule.Text())
	}
	return c, nil
}

// playLand is a special action; it doesn't use the stack (305.1).
func (g *Game) playLand(a PlayerAction) error {
	c, err := g.preparePlayLand(a)
	if err != nil {
		return err
	}
	p := g.players[a.PlayerID]
	p.landsPlayed++
	name := g.evaluate(c).Name
	g.moveCard(c, object.ZoneBattlefield, c.id)
	g.fire(rules.NewEvent(rules.EventLandPlayed, c.id, c.id, a.PlayerID))
	g.status("%s plays %s", p.name, name)
	return g.givePriority(a.PlayerID)
}

func (g *Game) orderTriggers(a PlayerAction) error {
	ordered, err := g.triggers.Order(a.PlayerID, a.Order)
	if err != nil {
		return err
	}
	g.stackTriggers(ordered)
	return g.resumePriority()
}

// resumePriority gives priority back once a trigger ordering request is answered.
func (g *Game) resumePriority() error {
	holder := g.holderAfter
	g.holderAfter = ""
	if holder == "" {
		holder = g.priorityStart()
	}
	return g.givePriority(holder)
}

func (g *Game) concede(a PlayerAction) error {
	holder := g.priority.Holder()
	g.players[a.PlayerID].conceded = true
	g.playerLoses(a.PlayerID, "conceded")
	g.checkGameOver()
	if g.state != StateRunning {
		return nil
	}
	if req := g.triggers.Awaiting(); req != nil {
		if req.PlayerID != a.PlayerID {
			return nil
		}
		g.triggers.DefaultOrder()
		return g.resumePriority()
	}
	if holder == "" || holder == a.PlayerID {
		holder = g.nextInGame(a.PlayerID)
	}
	return g.givePriority(holder)
}

// timeout takes the default decision for a player who ran out of time:
// triggers keep detection order, otherwise the player passes.
func (g *Game) timeout(a PlayerAction) error {
	if req := g.triggers.Awaiting(); req != nil {
		if req.PlayerID != a.PlayerID {
			return rules.IllegalAction(a.PlayerID, "no decision pending for this player")
		}
		g.stackTriggers(g.triggers.DefaultOrder())
		return g.resumePriority()
	}
	return g.pass(a)
}

// checkTargets validates the announced targets of a spell or ability.
func (g *Game) checkTargets(a PlayerAction, reqs []targeting.TargetRequirement, src values.Source) error {
	if len(reqs) == 0 {
		if len(a.Targets) > 0 {
			return rules.IllegalAction(a.PlayerID, "this has no targets")
		}
		return nil
	}
	return g.validator().Validate(a.PlayerID, reqs, a.Targets, src.FilterContext())
}

func cloneTargets(targets [][]string, groups int) [][]string {
	if groups == 0 {
		return nil
	}
	out := make([][]string, len(targets))
	for i, t := range targets {
		out[i] = slices.Clone(t)
	}
	return out
}

// LegalActions lists actions playerID can take now. Spells and abilities
// with targets are listed with the first legal targets.
func (g *Game) LegalActions(playerID string) []PlayerAction {
	if g.state != StateRunning || !g.PlayerInGame(playerID) {
		return nil
	}
	if req := g.triggers.Awaiting(); req != nil {
		if req.PlayerID != playerID {
			return nil
		}
		order := make([]string, len(req.Triggers))
		for i, t := range req.Triggers {
			order[i] = t.ID
		}
		return []PlayerAction{
			{PlayerID: playerID, ActionType: ActionOrderTriggers, Order: order},
			{PlayerID: playerID, ActionType: ActionConcede},
		}
	}
	out := []PlayerAction{{PlayerID: playerID, ActionType: ActionConcede}}
	if g.priority.Holder() != playerID {
		return out
	}
	out = append(out, PlayerAction{PlayerID: playerID, ActionType: ActionPass})
	auto := AutoDecider{}
	for _, id := range g.players[playerID].hand {
		c := g.cards[id]
		if c.base.HasType(object.TypeLand) {
			a := PlayerAction{PlayerID: playerID, ActionType: ActionPlayLand, ObjectID: id}
			if _, err := g.preparePlayLand(a); err == nil {
				out = append(out, a)
			}
			continue
		}
		a := PlayerAction{PlayerID: playerID, ActionType: ActionCastSpell, ObjectID: id}
		if sa := c.spellAbility(); sa != nil && len(sa.targets) > 0 {
			a.Targets = auto.ChooseTargets(g, playerID, sa.targets, values.Source{ID: id, ControllerID: playerID})
		}
		if _, err := g.prepareCast(a); err == nil {
			out = append(out, a)
		}
	}
	for _, id := range g.objectsIn(object.ZoneAll) {
		c, ok := g.cards[id]
		if !ok {
			continue
		}
		for _, ab := range c.Abilities() {
			aa, ok := ab.(*ActivatedAbility)
			if !ok || !aa.zone.Includes(c.zone) {
				continue
			}
			a := PlayerAction{PlayerID: playerID, ActionType: ActionActivateAbility, ObjectID: id, AbilityID: aa.ID()}
			if len(aa.targets) > 0 {
				a.Targets = auto.ChooseTargets(g, playerID, aa.targets, values.Source{ID: id, ControllerID: playerID})
			}
			if _, err := g.prepareActivation(a); err == nil {
				out = append(out, a)
			}
		}
	}
	return out
}
