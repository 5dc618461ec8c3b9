package game

import (
	"slices"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/targeting"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// Decider answers choices players make while the game performs an action:
// targets of triggered abilities, "you may" effects, and picking objects.
// Choices players make when they act are part of the action itself.
type Decider interface {
	ChooseTargets(g *Game, playerID string, reqs []targeting.TargetRequirement, src values.Source) [][]string
	ChooseUse(g *Game, playerID, prompt string) bool
	ChooseObjects(g *Game, playerID string, candidates []string, n int, prompt string) []string
}

// AutoDecider picks the first legal options and accepts every "you may".
type AutoDecider struct{}

func (AutoDecider) ChooseTargets(g *Game, playerID string, reqs []targeting.TargetRequirement, src values.Source) [][]string {
	v := g.validator()
	ctx := src.FilterContext()
	out := make([][]string, len(reqs))
	for i, req := range reqs {
		var picked []string
		for _, id := range g.targetCandidates(req, playerID) {
			if len(picked) == req.MaxTargets {
				break
			}
			if !slices.Contains(picked, id) && v.IsLegal(req, id, ctx) {
				picked = append(picked, id)
			}
		}
		out[i] = picked
	}
	return out
}

func (AutoDecider) ChooseUse(*Game, string, string) bool { return true }

func (AutoDecider) ChooseObjects(_ *Game, _ string, candidates []string, n int, _ string) []string {
	return slices.Clone(candidates[:min(n, len(candidates))])
}

// targetCandidates lists everything that could be chosen for req: players
// starting with the chooser's next opponent, then objects in the zones req
// looks at.
func (g *Game) targetCandidates(req targeting.TargetRequirement, chooser string) []string {
	var players []string
	for id := g.nextInGame(chooser); id != "" && id != chooser && !slices.Contains(players, id); id = g.nextInGame(id) {
		players = append(players, id)
	}
	if g.PlayerInGame(chooser) {
		players = append(players, chooser)
	}
	var out []string
	switch req.Type {
	case targeting.TargetTypePlayer:
		return players
	case targeting.TargetTypeAny:
		out = append(out, players...)
		out = append(out, g.battlefield...)
	case targeting.TargetTypeSpell:
		out = g.objectsIn(object.ZoneStack)
		slices.Reverse(out)
	case targeting.TargetTypeGraveyardCard:
		out = g.objectsIn(object.ZoneGraveyard)
	default:
		out = slices.Clone(g.battlefield)
	}
	return out
}

// chooseTargets asks the decider for targets and validates the answer. An
// illegal answer falls back to the automatic choice. It reports false when
// no legal choice exists.
func (g *Game) chooseTargets(playerID string, reqs []targeting.TargetRequirement, src values.Source) ([][]string, bool) {
	if picks, ok := g.replayPicks(); ok {
		g.log.recordPicks(picks)
		return picks, g.validator().Validate(playerID, reqs, picks, src.FilterContext()) == nil
	}
	v := g.validator()
	ctx := src.FilterContext()
	chosen := g.decider.ChooseTargets(g, playerID, reqs, src)
	if err := v.Validate(playerID, reqs, chosen, ctx); err != nil {
		g.logger.Debug("decider chose illegal targets",
			zap.String("player_id", playerID),
			zap.Error(err))
		chosen = AutoDecider{}.ChooseTargets(g, playerID, reqs, src)
		if v.Validate(playerID, reqs, chosen, ctx) != nil {
			return nil, false
		}
	}
	g.log.recordPicks(chosen)
	return chosen, true
}

func (g *Game) chooseUse(playerID, prompt string) bool {
	use, ok := g.replayChoice()
	if !ok {
		use = g.decider.ChooseUse(g, playerID, prompt)
	}
	g.log.recordChoice(use)
	return use
}

// chooseObjects asks for n distinct ids out of candidates. Answers that are
// not candidates are replaced by the first unchosen candidates.
func (g *Game) chooseObjects(playerID string, candidates []string, n int, prompt string) []string {
	n = min(n, len(candidates))
	if n <= 0 {
		return nil
	}
	if picks, ok := g.replayPicks(); ok {
		g.log.recordPicks(picks)
		if len(picks) != 1 {
			return nil
		}
		return picks[0]
	}
	var picked []string
	for _, id := range g.decider.ChooseObjects(g, playerID, slices.Clone(candidates), n, prompt) {
		if len(picked) < n && slices.Contains(candidates, id) && !slices.Contains(picked, id) {
			picked = append(picked, id)
		}
	}
	for _, id := range candidates {
		if len(picked) == n {
			break
		}
		if !slices.Contains(picked, id) {
			picked = append(picked, id)
		}
	}
	g.log.recordPicks([][]string{picked})
	return picked
}
