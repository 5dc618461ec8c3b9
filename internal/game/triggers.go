package game

import (
	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// pendingAbility is a triggered ability waiting to be put on the stack.
type pendingAbility struct {
	ability *TriggeredAbility
	event   rules.Event
	source  values.Source
	// snapshot is the source as it was when the ability triggered.
	snapshot *object.Snapshot
}

// detectTriggers is subscribed to the event bus. It checks every triggered
// ability functioning in its zone against the event and queues the ones that
// trigger. Only abilities the object currently has count, including the ones
// it acquired. Leaves-the-battlefield abilities look back in time: they
// trigger from the last known information of objects that left simultaneously.
func (g *Game) detectTriggers(ev rules.Event) {
	if g.state == StateFinished || g.state == StateHalted {
		return
	}
	g.syncAcquired()
	for _, id := range g.objectsIn(object.ZoneAll) {
		c, ok := g.cards[id]
		if !ok || (c.faceDown && c.zone == object.ZoneBattlefield) || !hasTriggerIn(c, c.zone) {
			continue
		}
		s := g.evaluate(c)
		src := values.Source{ID: c.id, ControllerID: s.ControllerID}
		for _, a := range abilitiesOf(c, s, c.acquired) {
			if ta, ok := a.(*TriggeredAbility); ok && ta.zone.Includes(c.zone) {
				g.checkTrigger(ta, src, ev)
			}
		}
	}
	for _, e := range g.emblems {
		src := values.Source{ID: e.id, ControllerID: e.controllerID}
		for _, a := range e.abilities {
			if ta, ok := a.(*TriggeredAbility); ok {
				g.checkTrigger(ta, src, ev)
			}
		}
	}
	if ev.IsLeavesBattlefield() {
		g.lookBack(ev)
	}
}

func hasTriggerIn(c *Card, zone object.Zone) bool {
	for _, list := range [][]Ability{c.abilities, c.acquired} {
		for _, a := range list {
			if ta, ok := a.(*TriggeredAbility); ok && ta.zone.Includes(zone) {
				return true
			}
		}
	}
	return false
}

func (g *Game) lookBack(ev rules.Event) {
	left := []string{ev.TargetID}
	for _, id := range g.leftInBatch {
		if id != ev.TargetID {
			left = append(left, id)
		}
	}
	for _, id := range left {
		c, ok := g.cards[id]
		lki, known := g.lastKnown[id]
		if !ok || !known || c.zone == object.ZoneBattlefield || lki.FaceDown {
			continue
		}
		src := values.Source{ID: id, ControllerID: lki.ControllerID}
		for _, a := range abilitiesOf(c, lki, c.lastAcquired) {
			if ta, ok := a.(*TriggeredAbility); ok && ta.lookBack && ta.zone == object.ZoneBattlefield {
				g.checkTrigger(ta, src, ev)
			}
		}
	}
}

func (g *Game) checkTrigger(ta *TriggeredAbility, src values.Source, ev rules.Event) {
	if !ta.check(g, src, ev) {
		return
	}
	// 603.4: an intervening "if" clause is checked when the ability triggers.
	if ta.condition != nil && !ta.condition.Apply(g, src) {
		return
	}
	snap, ok := g.Object(src.ID)
	if !ok || !ta.zone.Includes(snap.Zone) {
		if lki, known := g.LastKnown(src.ID); known {
			snap = lki
		}
	}
	id := g.nextID("trigger")
	g.triggered[id] = &pendingAbility{ability: ta, event: ev, source: src, snapshot: snap}
	description := ta.Text()
	if snap != nil {
		description = snap.Name + ": " + description
	}
	g.triggers.Queue(rules.PendingTrigger{
		ID:           id,
		AbilityID:    ta.ID(),
		SourceID:     src.ID,
		ControllerID: src.ControllerID,
		Description:  description,
		Event:        ev,
	})
	g.logger.Debug("ability triggered",
		zap.String("trigger_id", id),
		zap.String("source_id", src.ID),
		zap.String("event", string(ev.Type)))
}

// placeTriggers puts waiting triggered abilities on the stack in APNAP order.
// It stops when a player has to order their triggers.
func (g *Game) placeTriggers() bool {
	if !g.triggers.HasPending() || g.triggers.Awaiting() != nil {
		return false
	}
	ready, req := g.triggers.Flush(g.turn.Order(), g.turn.ActivePlayer())
	placed := g.stackTriggers(ready)
	if req != nil {
		g.status("%s orders %d triggered abilities", g.players[req.PlayerID].name, len(req.Triggers))
	}
	return placed
}

func (g *Game) stackTriggers(ready []rules.PendingTrigger) bool {
	placed := false
	for _, t := range ready {
		if g.putTriggerOnStack(t) {
			placed = true
		}
	}
	return placed
}

func (g *Game) putTriggerOnStack(t rules.PendingTrigger) bool {
	pa, ok := g.triggered[t.ID]
	if !ok {
		return false
	}
	delete(g.triggered, t.ID)
	if !g.PlayerInGame(t.ControllerID) {
		return false
	}
	ta := pa.ability
	var targets [][]string
	if len(ta.targets) > 0 {
		chosen, ok := g.chooseTargets(t.ControllerID, ta.targets, pa.source)
		if !ok {
			// 603.3d: an ability without legal targets is removed from the stack.
			g.logger.Debug("triggered ability has no legal targets",
				zap.String("trigger_id", t.ID),
				zap.String("source_id", t.SourceID))
			return false
		}
		targets = chosen
	}
	ev := pa.event
	so := &StackObject{
		id:           g.nextID("stack"),
		kind:         rules.StackItemKindTriggered,
		sourceID:     t.SourceID,
		controllerID: t.ControllerID,
		ability:      ta,
		targets:      targets,
		event:        &ev,
		source:       pa.snapshot,
	}
	g.stack.Push(so)
	g.fire(rules.NewEvent(rules.EventTriggeredAbility, so.id, t.SourceID, t.ControllerID))
	return true
}
