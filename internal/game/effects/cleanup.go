package effects

import (
	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/object"
)

// Duration represents how long an effect lasts
type Duration string

const (
	// DurationEndOfTurn - Effect expires in the cleanup step
	DurationEndOfTurn Duration = "EndOfTurn"

	// DurationEndOfCombat - Effect expires at end of combat
	DurationEndOfCombat Duration = "EndOfCombat"

	// DurationWhileOnBattlefield - Effect lasts while source is on battlefield
	DurationWhileOnBattlefield Duration = "WhileOnBattlefield"

	// DurationWhileOnStack - Effect lasts while source is on the stack
	DurationWhileOnStack Duration = "WhileOnStack"

	// DurationWhileControlled - Effect lasts while the effect's controller controls the source
	DurationWhileControlled Duration = "WhileControlled"

	// DurationUntilSourceLeaves - Effect lasts until source leaves battlefield
	DurationUntilSourceLeaves Duration = "UntilSourceLeaves"

	// DurationEndOfGame - Effect lasts for the rest of the game
	DurationEndOfGame Duration = "EndOfGame"

	// DurationCustom - Effect is removed explicitly by whoever created it
	DurationCustom Duration = "Custom"

	// DurationOneUse - Replacement effect that is removed after it applied once
	DurationOneUse Duration = "OneUse"
)

// sourceBound reports whether effects of this duration end when their source
// leaves the given zone.
func (d Duration) sourceBound(left object.Zone) bool {
	switch d {
	case DurationWhileOnBattlefield, DurationWhileControlled, DurationUntilSourceLeaves:
		return left == object.ZoneBattlefield
	case DurationWhileOnStack:
		return left == object.ZoneStack
	}
	return false
}

type durable interface {
	SourceID() string
	ControllerID() string
	Duration() Duration
}

type abilityBound interface {
	SourceAbility() string
	setSourceAbility(text string)
}

// FromAbility marks e as generated by the static ability with the given
// text. Such an effect only applies while its source has that ability, so
// an object that loses the ability stops generating it.
func FromAbility(e any, text string) {
	if b, ok := e.(abilityBound); ok {
		b.setSourceAbility(text)
	}
}

// IsActive reports whether an effect's duration still holds and, for an
// effect of a static ability, whether its source still has that ability.
func IsActive(env Env, e durable) bool {
	if b, ok := e.(abilityBound); ok && b.SourceAbility() != "" {
		if s, ok := env.AbilityValues(e.SourceID()); ok && !s.HasAbility(b.SourceAbility()) {
			return false
		}
	}
	switch e.Duration() {
	case DurationWhileOnBattlefield, DurationUntilSourceLeaves:
		return env.ZoneOf(e.SourceID()) == object.ZoneBattlefield
	case DurationWhileOnStack:
		return env.ZoneOf(e.SourceID()) == object.ZoneStack
	case DurationWhileControlled:
		s, ok := env.Object(e.SourceID())
		return ok && s.Zone == object.ZoneBattlefield && s.ControllerID == e.ControllerID()
	}
	return true
}

// RemoveExpired removes effects of the given duration, e.g. DurationEndOfTurn
// during cleanup.
func (ls *LayerSystem) RemoveExpired(d Duration) int {
	removed := ls.removeWhere(func(e ContinuousEffect) bool { return e.Duration() == d })
	if removed > 0 {
		ls.logger.Debug("removed expired continuous effects",
			zap.String("duration", string(d)),
			zap.Int("removed", removed))
	}
	return removed
}

// RemoveSourceBound removes the effects that end because their source left
// the given zone.
func (ls *LayerSystem) RemoveSourceBound(sourceID string, left object.Zone) int {
	return ls.removeWhere(func(e ContinuousEffect) bool {
		return e.SourceID() == sourceID && e.Duration().sourceBound(left)
	})
}

// ForgetObject is called when an object changes zones: it becomes a new
// object, so effects locked to it no longer affect it. Effects left without
// anything to affect are removed.
func (ls *LayerSystem) ForgetObject(objectID string) int {
	return ls.removeWhere(func(e ContinuousEffect) bool { return e.forget(objectID) })
}
