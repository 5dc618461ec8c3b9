package game

import (
	"errors"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

// resolveTop resolves the top object of the stack (608). Targets are checked
// again first; an object whose targets all became illegal does nothing.
func (g *Game) resolveTop() error {
	top, ok := g.stack.Peek()
	if !ok {
		return rules.Invariantf("resolveTop", "all players passed but the stack is empty")
	}
	so := top.(*StackObject)
	g.priority.BeginResolution()

	effs, reqs := so.ability.resolution()
	src := so.valueSource()
	ctx := &EffectContext{Source: src, Targets: so.Targets(), X: so.x, Event: so.event, StackObjectID: so.id}
	fizzled := false
	if len(reqs) > 0 {
		legal, allIllegal := g.validator().Recheck(reqs, so.targets, src.FilterContext())
		fizzled = allIllegal
		ctx.Targets = legal
	}

	var err error
	if fizzled {
		g.status("%s does nothing: all its targets are illegal", so.Description())
		g.fire(rules.NewEvent(rules.EventFizzled, so.id, so.sourceID, so.controllerID))
	} else {
		if g.performs(so) {
			for _, e := range effs {
				if err = e.Apply(g, ctx); err != nil {
					break
				}
			}
		}
		g.status("%s resolves", so.Description())
	}
	g.leaveStack(so, fizzled)
	if !fizzled {
		g.fire(rules.NewEvent(rules.EventResolved, so.id, so.sourceID, so.controllerID))
	}
	g.priority.EndResolution(g.stack.IsEmpty())

	if err != nil {
		if !errors.Is(err, rules.ErrInvariantViolation) {
			err = rules.Invariantf("resolveTop", "%s: %v", so.Description(), err)
		}
		return err
	}
	return g.givePriority(g.priorityStart())
}

// performs checks a triggered ability's intervening "if" clause again and
// asks about optional effects.
func (g *Game) performs(so *StackObject) bool {
	ta, ok := so.ability.(*TriggeredAbility)
	if !ok {
		return true
	}
	if ta.condition != nil && !ta.condition.Apply(g, so.valueSource()) {
		g.logger.Debug("intervening if clause no longer holds",
			zap.String("stack_id", so.id),
			zap.String("condition", ta.condition.String()))
		return false
	}
	if ta.optional {
		return g.chooseUse(so.controllerID, ta.Text())
	}
	return true
}

// leaveStack takes a resolved object off the stack. A permanent spell
// enters the battlefield under its controller's control; other spells go to
// their owner's graveyard.
func (g *Game) leaveStack(so *StackObject, fizzled bool) {
	c, ok := g.cards[so.id]
	if so.kind != rules.StackItemKindSpell || !ok || c.zone != object.ZoneStack {
		g.stack.Remove(so.id)
		return
	}
	if !fizzled && g.evaluate(c).IsPermanent() {
		g.moveCardUnder(c, object.ZoneBattlefield, "", so.controllerID)
		return
	}
	g.moveCard(c, object.ZoneGraveyard, "")
}

// CounterStackObject counters a spell or ability. Effects that say it
// can't be countered stop it.
func (g *Game) CounterStackObject(id, sourceID string) (bool, error) {
	it, ok := g.stack.Get(id)
	if !ok {
		return false, nil
	}
	so := it.(*StackObject)
	if _, prevented := g.replace(rules.NewEvent(rules.EventCounter, id, sourceID, so.controllerID)); prevented {
		g.status("%s can't be countered", so.Description())
		return false, nil
	}
	if c, ok := g.cards[id]; ok && so.kind == rules.StackItemKindSpell {
		g.moveCard(c, object.ZoneGraveyard, sourceID)
	}
	g.stack.Remove(id)
	g.fire(rules.NewEvent(rules.EventCountered, id, sourceID, so.controllerID))
	g.status("%s is countered", so.Description())
	return true, nil
}
