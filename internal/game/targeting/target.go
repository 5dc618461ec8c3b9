package targeting

import (
	"fmt"
	"slices"
	"strings"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

// TargetType represents the type of target a spell or ability can have.
type TargetType string

const (
	// TargetTypeCreature targets creatures
	TargetTypeCreature TargetType = "CREATURE"
	// TargetTypePlayer targets players
	TargetTypePlayer TargetType = "PLAYER"
	// TargetTypeSpell targets spells on the stack
	TargetTypeSpell TargetType = "SPELL"
	// TargetTypePermanent targets permanents (creatures, artifacts, enchantments, etc.)
	TargetTypePermanent TargetType = "PERMANENT"
	// TargetTypeAny targets a creature or a player
	TargetTypeAny TargetType = "ANY"
	// TargetTypeGraveyardCard targets a card in a graveyard
	TargetTypeGraveyardCard TargetType = "GRAVEYARD_CARD"
)

// TargetRequirement defines what targets a spell or ability requires.
type TargetRequirement struct {
	Type TargetType
	// Filter further restricts objects; nil accepts any object of Type.
	Filter *object.Filter
	// MinTargets is the minimum number of targets required (usually 1)
	MinTargets int
	// MaxTargets is the maximum number of targets allowed ("up to X")
	MaxTargets int
	Description string
}

// Single returns a requirement for exactly one target.
func Single(t TargetType, filter *object.Filter, description string) TargetRequirement {
	return TargetRequirement{Type: t, Filter: filter, MinTargets: 1, MaxTargets: 1, Description: description}
}

// TargetSelection represents a player's target selection for one requirement.
type TargetSelection struct {
	Targets     []string
	Requirement TargetRequirement
}

// Validate checks the number of chosen targets.
func (ts *TargetSelection) Validate() error {
	if ts == nil {
		return fmt.Errorf("target selection is nil")
	}
	count := len(ts.Targets)
	if count < ts.Requirement.MinTargets {
		return fmt.Errorf("not enough targets: need at least %d, got %d", ts.Requirement.MinTargets, count)
	}
	if count > ts.Requirement.MaxTargets {
		return fmt.Errorf("too many targets: need at most %d, got %d", ts.Requirement.MaxTargets, count)
	}
	return nil
}

// State gives the validator access to the game.
type State interface {
	// Object returns the current characteristics of an object in any zone.
	Object(id string) (*object.Snapshot, bool)
	// PlayerInGame reports whether a player exists and has not left the game.
	PlayerInGame(playerID string) bool
}

// Validator checks target legality, on announcement and again on resolution.
type Validator struct {
	state State
}

// NewValidator creates a validator.
func NewValidator(state State) *Validator {
	return &Validator{state: state}
}

// IsLegal reports whether id is currently a legal target for req.
func (v *Validator) IsLegal(req TargetRequirement, id string, ctx object.FilterContext) bool {
	if req.Type == TargetTypePlayer || req.Type == TargetTypeAny {
		if v.state.PlayerInGame(id) {
			return true
		}
		if req.Type == TargetTypePlayer {
			return false
		}
	}
	s, ok := v.state.Object(id)
	if !ok {
		return false
	}
	if s.Restrictions.Has(object.RestrictCantBeTargeted) && s.ControllerID != ctx.ControllerID {
		return false
	}
	switch req.Type {
	case TargetTypeCreature, TargetTypeAny:
		if s.Zone != object.ZoneBattlefield || !s.IsCreature() {
			return false
		}
	case TargetTypePermanent:
		if s.Zone != object.ZoneBattlefield {
			return false
		}
	case TargetTypeSpell:
		if s.Zone != object.ZoneStack {
			return false
		}
	case TargetTypeGraveyardCard:
		if s.Zone != object.ZoneGraveyard {
			return false
		}
	}
	return req.Filter.Match(s, ctx)
}

// Validate checks the targets announced for a spell or ability. It returns an
// illegal action error naming the first problem.
func (v *Validator) Validate(playerID string, reqs []TargetRequirement, chosen [][]string, ctx object.FilterContext) error {
	if len(chosen) != len(reqs) {
		return rules.IllegalActionf(playerID, "expected %d target groups, got %d", len(reqs), len(chosen))
	}
	for i, req := range reqs {
		sel := TargetSelection{Targets: chosen[i], Requirement: req}
		if err := sel.Validate(); err != nil {
			return rules.IllegalAction(playerID, err.Error())
		}
		for j, id := range chosen[i] {
			if slices.Contains(chosen[i][:j], id) {
				return rules.IllegalActionf(playerID, "target %s chosen twice", id)
			}
			if !v.IsLegal(req, id, ctx) {
				return rules.IllegalActionf(playerID, "%s is not a legal target for %s", id, req.Description)
			}
		}
	}
	return nil
}

// Recheck filters chosen targets down to the ones still legal. allIllegal is
// true when at least one target was chosen and none remain, in which case
// the spell or ability does not resolve.
func (v *Validator) Recheck(reqs []TargetRequirement, chosen [][]string, ctx object.FilterContext) (legal [][]string, allIllegal bool) {
	legal = make([][]string, len(chosen))
	total, kept := 0, 0
	for i, ids := range chosen {
		for _, id := range ids {
			total++
			if i < len(reqs) && v.IsLegal(reqs[i], id, ctx) {
				legal[i] = append(legal[i], id)
				kept++
			}
		}
	}
	return legal, total > 0 && kept == 0
}

// FormatTargets joins target IDs for logs and wire messages.
func FormatTargets(targets []string) string {
	return strings.Join(targets, ",")
}

// ParseTargets parses target IDs from a formatted string.
func ParseTargets(formatted string) []string {
	if formatted == "" {
		return []string{}
	}
	return strings.Split(formatted, ",")
}
