package game

import (
	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/counters"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

const poisonToLose = 10

// settle performs state-based actions and puts triggered abilities on the
// stack until neither happens (117.5). It reports whether anything happened.
func (g *Game) settle() (bool, error) {
	changed := false
	for i := 0; ; i++ {
		if i >= maxStateIterations {
			return changed, rules.Invariantf("settle", "state did not settle after %d iterations", maxStateIterations)
		}
		if g.state != StateRunning {
			return changed, nil
		}
		g.syncAcquired()
		if g.checkStateBasedActions() {
			changed = true
			continue
		}
		if g.placeTriggers() {
			changed = true
			continue
		}
		return changed, nil
	}
}

// givePriority settles the game state and gives priority to playerID. While
// a player orders triggers nobody holds priority.
func (g *Game) givePriority(playerID string) error {
	if _, err := g.settle(); err != nil {
		return err
	}
	if g.state != StateRunning {
		g.priority.Close()
		return nil
	}
	if !g.PlayerInGame(playerID) {
		playerID = g.nextInGame(playerID)
	}
	if g.triggers.Awaiting() != nil {
		g.holderAfter = playerID
		g.priority.Close()
		return nil
	}
	g.priority.Grant(playerID, g.stack.IsEmpty())
	return nil
}

// priorityStart is the player who receives priority when a step begins or a
// spell resolves: the active player, or the next player if they left.
func (g *Game) priorityStart() string {
	active := g.turn.ActivePlayer()
	if g.PlayerInGame(active) {
		return active
	}
	return g.nextInGame(active)
}

// nextInGame returns the first player after playerID in seating order who is
// still in the game.
func (g *Game) nextInGame(playerID string) string {
	n := len(g.seats)
	start := 0
	for i, id := range g.seats {
		if id == playerID {
			start = i
			break
		}
	}
	for k := 1; k <= n; k++ {
		id := g.seats[(start+k)%n]
		if g.players[id].inGame() {
			return id
		}
	}
	return ""
}

// checkStateBasedActions performs every applicable state-based action at
// once (704.3) and reports whether any was performed.
func (g *Game) checkStateBasedActions() bool {
	acted := false

	type loss struct{ id, reason string }
	var losses []loss
	for _, id := range g.seats {
		p := g.players[id]
		if !p.inGame() {
			continue
		}
		switch {
		case p.life <= 0:
			losses = append(losses, loss{id, "life total is 0 or less"})
		case p.drewFromEmpty:
			losses = append(losses, loss{id, "drew from an empty library"})
		case p.poison >= poisonToLose:
			losses = append(losses, loss{id, "ten or more poison counters"})
		}
	}
	for _, l := range losses {
		g.playerLoses(l.id, l.reason)
		acted = true
	}
	if acted {
		g.checkGameOver()
	}
	if g.state != StateRunning {
		return acted
	}

	var toGraveyard, toDestroy []*Card
	for _, id := range g.battlefield {
		c := g.cards[id]
		// 704.5q: +1/+1 and -1/-1 counters annihilate.
		if c.counters.Annihilate() > 0 {
			acted = true
		}
		s := g.evaluate(c)
		if s.IsCreature() {
			switch {
			case s.Toughness <= 0:
				toGraveyard = append(toGraveyard, c)
				continue
			case c.damage > 0 && c.damage >= s.Toughness:
				toDestroy = append(toDestroy, c)
				continue
			}
		}
		if s.HasType(object.TypePlaneswalker) && c.counters.Count(string(counters.Loyalty)) <= 0 {
			toGraveyard = append(toGraveyard, c)
		}
	}
	g.batch(func() {
		for _, c := range toGraveyard {
			if g.moveCard(c, object.ZoneGraveyard, "") {
				acted = true
			}
		}
		for _, c := range toDestroy {
			if g.destroy(c.id, "") {
				acted = true
			}
		}
	})

	// 704.5d: tokens that left the battlefield cease to exist.
	for _, id := range g.objectsIn(object.ZoneAll) {
		if c, ok := g.cards[id]; ok && c.token && c.zone != object.ZoneBattlefield {
			g.removeObject(c)
			acted = true
		}
	}
	return acted
}

// playerLoses removes a player from the game (800.4a). Callers check for the
// end of the game afterwards so that simultaneous losses make a draw.
func (g *Game) playerLoses(playerID, reason string) {
	p, ok := g.players[playerID]
	if !ok || !p.inGame() {
		return
	}
	p.lost = true
	g.status("%s loses the game: %s", p.name, reason)
	ev := rules.NewEvent(rules.EventPlayerLost, playerID, "", playerID)
	ev.Data = reason
	g.fire(ev)

	g.removePlayerObjects(playerID)
	g.turn.RemovePlayer(playerID)
	g.priority.RemovePlayer(playerID)
	g.mods.RemovePlayer(playerID)
}

// checkGameOver ends the game when at most one player remains.
func (g *Game) checkGameOver() {
	remaining := g.turn.Order()
	switch len(remaining) {
	case 0:
		g.finish("")
	case 1:
		g.finish(remaining[0])
	}
}

// removePlayerObjects removes everything a player owns and every spell,
// ability and effect they control.
func (g *Game) removePlayerObjects(playerID string) {
	for _, id := range g.objectsIn(object.ZoneAll) {
		if c, ok := g.cards[id]; ok && c.ownerID == playerID {
			g.removeObject(c)
			g.layers.RemoveBySource(id)
			g.replacements.RemoveBySource(id)
		}
	}
	for _, so := range g.Stack() {
		if so.controllerID != playerID {
			continue
		}
		if c, ok := g.cards[so.id]; ok {
			g.detach(c, g.evaluate(c))
			g.attach(c, object.ZoneExile)
			continue
		}
		g.stack.Remove(so.id)
	}
	kept := g.emblems[:0]
	for _, e := range g.emblems {
		if e.controllerID == playerID {
			g.unregister(e.id, object.ZoneCommand)
			continue
		}
		kept = append(kept, e)
	}
	g.emblems = kept
	for id, pa := range g.triggered {
		if pa.source.ControllerID == playerID {
			delete(g.triggered, id)
		}
	}
}

func (g *Game) finish(winner string) {
	if g.state == StateFinished {
		return
	}
	g.state = StateFinished
	g.winner = winner
	g.priority.Close()
	g.triggers.Clear()
	g.fire(rules.NewEvent(rules.EventGameOver, winner, "", winner))
	if winner == "" {
		g.status("The game is a draw")
	} else {
		g.status("%s wins the game", g.players[winner].name)
	}
	g.logger.Info("game over",
		zap.String("winner", winner),
		zap.Int("turn", g.turn.TurnNumber()))
}
