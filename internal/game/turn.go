package game

import (
	"slices"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

// advance moves the game to the next step that gives players priority,
// performing turn-based actions on the way.
func (g *Game) advance() error {
	for g.state == StateRunning {
		if g.cleanupAgain {
			// 514.3a: another cleanup step follows one where anything happened.
			g.cleanupAgain = false
		} else {
			if g.turn.Started() {
				g.endStep()
			}
			g.announce(g.turn.Next(g.mods))
		}

		step := g.turn.CurrentStep()
		started := rules.NewEvent(rules.EventStepStarted, "", "", g.turn.ActivePlayer())
		started.Data = step.String()
		g.fire(started)
		g.turnBasedActions(step)

		if step == rules.StepCleanup {
			changed, err := g.settle()
			if err != nil {
				return err
			}
			if !changed && g.triggers.Awaiting() == nil {
				continue
			}
			g.cleanupAgain = true
		} else if !step.HasPriority() {
			continue
		}
		if g.state != StateRunning {
			return nil
		}
		g.priority.Reset(g.turn.Order(), g.turn.ActivePlayer(), g.stack.IsEmpty())
		return g.givePriority(g.priorityStart())
	}
	return nil
}

// endStep empties mana pools and ends "until end of combat" effects.
func (g *Game) endStep() {
	step := g.turn.CurrentStep()
	ev := rules.NewEvent(rules.EventStepEnded, "", "", g.turn.ActivePlayer())
	ev.Data = step.String()
	g.fire(ev)
	for _, id := range g.seats {
		g.players[id].pool.Empty()
	}
	if step == rules.StepEndCombat {
		g.layers.RemoveExpired(effects.DurationEndOfCombat)
		g.replacements.RemoveExpired(effects.DurationEndOfCombat)
	}
}

func (g *Game) announce(tr rules.Transition) {
	for _, id := range tr.SkippedTurns {
		g.status("%s skips a turn", g.players[id].name)
	}
	if tr.NewTurn {
		for _, id := range g.seats {
			g.players[id].landsPlayed = 0
		}
		begin := rules.NewAmountEvent(rules.EventBeginTurn, tr.ActivePlayer, "", tr.ActivePlayer, tr.TurnNumber)
		begin.Flag = tr.ExtraTurn
		g.fire(begin)
		if tr.ExtraTurn {
			g.fire(rules.NewAmountEvent(rules.EventExtraTurn, tr.ActivePlayer, "", tr.ActivePlayer, tr.TurnNumber))
			g.status("Turn %d (extra turn): %s", tr.TurnNumber, g.players[tr.ActivePlayer].name)
		} else {
			g.status("Turn %d: %s", tr.TurnNumber, g.players[tr.ActivePlayer].name)
		}
	}
	for _, s := range tr.SkippedSteps {
		ev := rules.NewEvent(rules.EventStepSkipped, "", "", tr.ActivePlayer)
		ev.Data = s.String()
		g.fire(ev)
	}
	for _, p := range tr.SkippedPhases {
		g.logger.Debug("phase skipped",
			zap.String("phase", p.String()),
			zap.String("active_player", tr.ActivePlayer))
	}
}

func (g *Game) turnBasedActions(step rules.Step) {
	active := g.turn.ActivePlayer()
	switch step {
	case rules.StepUntap:
		// 502.3: the active player untaps their permanents; they are no
		// longer summoning sick.
		for _, id := range g.permanentsControlledBy(active) {
			c := g.cards[id]
			c.summoningSick = false
			g.untap(c)
		}
	case rules.StepDraw:
		// 103.8a: the starting player of a two-player game skips the first draw.
		if g.turn.TurnNumber() == 1 && active == g.seats[0] && len(g.seats) == 2 {
			return
		}
		g.drawCard(active, "")
	case rules.StepCleanup:
		g.cleanup(active)
	}
}

// cleanup discards down to the maximum hand size, removes damage and ends
// "until end of turn" effects (514.1-514.2).
func (g *Game) cleanup(active string) {
	if p, ok := g.players[active]; ok && p.inGame() && len(p.hand) > maxHandSize {
		excess := len(p.hand) - maxHandSize
		candidates := slices.Clone(p.hand)
		slices.Reverse(candidates)
		for _, id := range g.chooseObjects(active, candidates, excess, "Choose cards to discard") {
			if c, ok := g.cards[id]; ok && c.zone == object.ZoneHand {
				g.moveCard(c, object.ZoneGraveyard, "")
			}
		}
	}
	for _, id := range g.battlefield {
		g.cards[id].damage = 0
	}
	g.layers.RemoveExpired(effects.DurationEndOfTurn)
	g.replacements.RemoveExpired(effects.DurationEndOfTurn)
}
