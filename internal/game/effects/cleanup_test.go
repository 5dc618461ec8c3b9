package effects

import (
	"testing"

	"github.com/magefree/mage-engine-go/internal/game/object"
)

// TestRemoveExpired verifies end of turn and end of combat cleanup
func TestRemoveExpired(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("source", "alice", object.TypeEnchantment))
	bears := env.add(creature("bears", "alice", 2, 2))

	env.ls.AddEffect(NewFixedBoostEffect("source", "alice", Objects("bears"), DurationEndOfTurn, 3, 3), 1)
	env.ls.AddEffect(NewGainAbilityEffect("source", "alice", "First strike", Objects("bears"), DurationEndOfCombat), 2)
	env.ls.AddEffect(NewGainAbilityEffect("source", "alice", "Trample", Objects("bears"), DurationEndOfGame), 3)

	if removed := env.ls.RemoveExpired(DurationEndOfCombat); removed != 1 {
		t.Fatalf("expected 1 end of combat effect removed, got %d", removed)
	}
	got := env.ls.Evaluate(env, bears).Snapshot
	if got.HasAbility("First strike") || got.Power != 5 {
		t.Fatalf("unexpected characteristics after end of combat: %+v", got.Characteristics)
	}

	env.ls.RemoveExpired(DurationEndOfTurn)
	got = env.ls.Evaluate(env, bears).Snapshot
	if got.Power != 2 || !got.HasAbility("Trample") {
		t.Fatalf("unexpected characteristics after cleanup: %+v", got.Characteristics)
	}
	if env.ls.Len() != 1 {
		t.Fatalf("expected 1 effect left, got %d", env.ls.Len())
	}
}

// TestRemoveSourceBound verifies that leaving a zone only ends the durations tied to that zone
func TestRemoveSourceBound(t *testing.T) {
	env := newTestEnv()
	env.ls.AddEffect(NewFixedBoostEffect("anthem", "alice", Matching(object.FilterCreature), DurationWhileOnBattlefield, 1, 1), 1)
	env.ls.AddEffect(NewFixedBoostEffect("anthem", "alice", Objects("bears"), DurationEndOfTurn, 1, 1), 2)
	env.ls.AddEffect(NewGainAbilityEffect("other", "alice", "Flying", Objects("bears"), DurationUntilSourceLeaves), 3)

	if removed := env.ls.RemoveSourceBound("anthem", object.ZoneStack); removed != 0 {
		t.Fatalf("leaving the stack must not end battlefield durations, removed %d", removed)
	}
	if removed := env.ls.RemoveSourceBound("anthem", object.ZoneBattlefield); removed != 1 {
		t.Fatalf("expected 1 effect removed, got %d", removed)
	}
	if env.ls.Len() != 2 {
		t.Fatalf("expected 2 effects left, got %d", env.ls.Len())
	}
}

// TestForgetObject verifies that effects locked to an object end when it changes zones
func TestForgetObject(t *testing.T) {
	env := newTestEnv()
	single := NewFixedBoostEffect("giant-growth", "alice", Objects("bears"), DurationEndOfTurn, 3, 3)
	shared := NewFixedBoostEffect("rally", "alice", Objects("bears", "elves"), DurationEndOfTurn, 1, 1)
	global := NewFixedBoostEffect("anthem", "alice", Matching(object.FilterCreature), DurationWhileOnBattlefield, 1, 1)
	env.ls.AddEffect(single, 1)
	env.ls.AddEffect(shared, 2)
	env.ls.AddEffect(global, 3)

	if removed := env.ls.ForgetObject("bears"); removed != 1 {
		t.Fatalf("expected only the single-object effect removed, got %d", removed)
	}
	if _, ok := env.ls.Get(shared.ID()); !ok {
		t.Fatal("effect on other objects must stay")
	}
	if ids := shared.Scope().ObjectIDs; len(ids) != 1 || ids[0] != "elves" {
		t.Fatalf("unexpected remaining scope %v", ids)
	}
}

func TestIsActive(t *testing.T) {
	env := newTestEnv()
	spell := env.add(permanent("spell", "alice", object.TypeInstant))
	spell.Zone = object.ZoneStack

	onStack := NewCantCounterSourceEffect("spell", "alice")
	if !IsActive(env, onStack) {
		t.Fatal("while-on-stack effect should be active while its source is on the stack")
	}
	spell.Zone = object.ZoneGraveyard
	if IsActive(env, onStack) {
		t.Fatal("while-on-stack effect should end when its source resolves")
	}

	stolen := env.add(creature("stolen", "bob", 2, 2))
	control := NewGainAbilityEffect("stolen", "alice", "Haste", Self(), DurationWhileControlled)
	if IsActive(env, control) {
		t.Fatal("while-controlled effect needs the controller to control the source")
	}
	stolen.ControllerID = "alice"
	if !IsActive(env, control) {
		t.Fatal("while-controlled effect should be active")
	}
}
