package effects

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// testEnv is a minimal game: base snapshots plus a layer system deriving
// current characteristics from them.
type testEnv struct {
	ls        *LayerSystem
	base      map[string]*object.Snapshot
	lastKnown map[string]*object.Snapshot
	active    string
}

func newTestEnv() *testEnv {
	return &testEnv{
		ls:        NewLayerSystem(zap.NewNop(), uuid.NameSpaceOID),
		base:      map[string]*object.Snapshot{},
		lastKnown: map[string]*object.Snapshot{},
	}
}

func (e *testEnv) add(s *object.Snapshot) *object.Snapshot {
	e.base[s.ID] = s
	return s
}

func (e *testEnv) Object(id string) (*object.Snapshot, bool) {
	b, ok := e.base[id]
	if !ok {
		return nil, false
	}
	return e.ls.Evaluate(e, b).Snapshot, true
}

func (e *testEnv) ObjectsIn(zone object.Zone) []*object.Snapshot {
	var out []*object.Snapshot
	for id, b := range e.base {
		if zone.Includes(b.Zone) {
			s, _ := e.Object(id)
			out = append(out, s)
		}
	}
	return out
}

func (e *testEnv) LastKnown(id string) (*object.Snapshot, bool) {
	s, ok := e.lastKnown[id]
	return s, ok
}

func (e *testEnv) PlayerLife(string) (int, bool)        { return 20, true }
func (e *testEnv) ActivePlayerID() string               { return e.active }
func (e *testEnv) TurnNumber() int                      { return 1 }
func (e *testEnv) Watcher(string) (rules.Watcher, bool) { return nil, false }

func (e *testEnv) ZoneOf(id string) object.Zone {
	if b, ok := e.base[id]; ok {
		return b.Zone
	}
	return object.ZoneNone
}

func (e *testEnv) CopiableValues(id string) (*object.Snapshot, bool) {
	b, ok := e.base[id]
	if !ok {
		return nil, false
	}
	return e.ls.EvaluateThrough(e, b, LayerCopy, SubLayerNA).Snapshot, true
}

func (e *testEnv) AbilityValues(id string) (*object.Snapshot, bool) {
	b, ok := e.base[id]
	if !ok {
		return nil, false
	}
	return e.ls.EvaluateThrough(e, b, LayerAbility, SubLayerNA).Snapshot, true
}

func creature(id, controller string, power, toughness int) *object.Snapshot {
	return &object.Snapshot{
		ID:           id,
		OwnerID:      controller,
		ControllerID: controller,
		Zone:         object.ZoneBattlefield,
		Characteristics: object.Characteristics{
			Name:      id,
			Types:     []object.CardType{object.TypeCreature},
			Power:     power,
			Toughness: toughness,
			HasPT:     true,
		},
	}
}

func permanent(id, controller string, types ...object.CardType) *object.Snapshot {
	return &object.Snapshot{
		ID:              id,
		OwnerID:         controller,
		ControllerID:    controller,
		Zone:            object.ZoneBattlefield,
		Characteristics: object.Characteristics{Name: id, Types: types},
	}
}

func TestSetThenModifyIsOrderIndependent(t *testing.T) {
	for _, setFirst := range []bool{true, false} {
		env := newTestEnv()
		env.add(permanent("source", "alice", object.TypeEnchantment))
		bears := env.add(creature("bears", "alice", 2, 2))

		set := NewSetPowerToughnessEffect("source", "alice", Objects("bears"), DurationEndOfTurn, values.Static(0), nil)
		boost := NewFixedBoostEffect("source", "alice", Objects("bears"), DurationEndOfTurn, 1, 0)
		if setFirst {
			env.ls.AddEffect(set, 1)
			env.ls.AddEffect(boost, 2)
		} else {
			env.ls.AddEffect(boost, 1)
			env.ls.AddEffect(set, 2)
		}

		got := env.ls.Evaluate(env, bears).Snapshot
		assert.Equal(t, 1, got.Power, "set first: %v", setFirst)
		assert.Equal(t, 2, got.Toughness)
	}
}

func TestEvaluateIsIdempotentAndPure(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("anthem", "alice", object.TypeEnchantment))
	bears := env.add(creature("bears", "alice", 2, 2))
	env.ls.AddEffect(NewFixedBoostEffect("anthem", "alice", Matching(object.FilterControlledCreature), DurationWhileOnBattlefield, 1, 1), 1)

	before := bears.Clone()
	first := env.ls.Evaluate(env, bears)
	second := env.ls.Evaluate(env, bears)

	assert.True(t, first.Snapshot.Equal(second.Snapshot))
	assert.True(t, bears.Equal(before), "base must not change")
	assert.Equal(t, 3, first.Snapshot.Power)
	assert.Len(t, first.Applied, 1)
}

func TestCountersApplyBetweenSetAndModify(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("source", "alice", object.TypeEnchantment))
	asp := env.add(creature("asp", "alice", 4, 5))
	asp.Counters = map[string]int{"+1/+1": 4, "-1/-1": 1}

	env.ls.AddEffect(NewSetPowerToughnessEffect("source", "alice", Objects("asp"), DurationEndOfTurn, values.Static(1), values.Static(1)), 1)
	env.ls.AddEffect(NewSwitchPowerToughnessEffect("source", "alice", Objects("asp"), DurationEndOfTurn), 2)
	env.ls.AddEffect(NewFixedBoostEffect("source", "alice", Objects("asp"), DurationEndOfTurn, 2, 0), 3)

	got := env.ls.Evaluate(env, asp).Snapshot
	// 1/1, counters +3/+3 -> 4/4, +2/+0 -> 6/4, switch -> 4/6
	assert.Equal(t, 4, got.Power)
	assert.Equal(t, 6, got.Toughness)
}

func TestCharacteristicDefiningAbilityIsRecomputed(t *testing.T) {
	env := newTestEnv()
	magnivore := env.add(creature("magnivore", "alice", 0, 0))
	magnivore.Zone = object.ZoneHand
	env.ls.AddEffect(NewSetPowerToughnessSourceEffect("magnivore", "alice",
		values.NewCardsInAllGraveyards(object.FilterSorceryCard)), 1)

	got := env.ls.Evaluate(env, magnivore).Snapshot
	assert.Equal(t, 0, got.Power, "functions in the hand too")

	env.add(&object.Snapshot{ID: "s1", OwnerID: "bob", Zone: object.ZoneGraveyard,
		Characteristics: object.Characteristics{Types: []object.CardType{object.TypeSorcery}}})
	env.add(&object.Snapshot{ID: "s2", OwnerID: "alice", Zone: object.ZoneGraveyard,
		Characteristics: object.Characteristics{Types: []object.CardType{object.TypeSorcery}}})

	got = env.ls.Evaluate(env, magnivore).Snapshot
	assert.Equal(t, 2, got.Power)
	assert.Equal(t, 2, got.Toughness)
}

func TestDependencyOverridesTimestamp(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("source", "alice", object.TypeEnchantment))
	land := env.add(permanent("forest", "alice", object.TypeLand))

	// older: creatures are artifacts; newer: lands are creatures
	artifacts := NewAddTypeEffect("source", "alice", Matching(object.FilterCreature), DurationEndOfGame,
		[]object.CardType{object.TypeArtifact})
	animate := NewAddTypeEffect("source", "alice", Matching(object.FilterLand), DurationEndOfGame,
		[]object.CardType{object.TypeCreature})
	env.ls.AddEffect(artifacts, 1)
	env.ls.AddEffect(animate, 2)

	eval := env.ls.Evaluate(env, land)
	assert.True(t, eval.Snapshot.HasType(object.TypeCreature))
	assert.True(t, eval.Snapshot.HasType(object.TypeArtifact))
	assert.Equal(t, []string{animate.ID(), artifacts.ID()}, eval.Applied)
	assert.False(t, eval.DependencyCycle)
}

func TestDependencyCycleFallsBackToTimestamp(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	env := newTestEnv()
	env.ls = NewLayerSystem(zap.New(core), uuid.NameSpaceOID)
	env.add(permanent("source", "alice", object.TypeEnchantment))
	target := env.add(permanent("relic", "alice", object.TypeArtifact))

	a := NewGainAbilityEffect("source", "alice", "Flying", Objects("relic"), DurationEndOfGame)
	b := NewGainAbilityEffect("source", "alice", "Vigilance", Objects("relic"), DurationEndOfGame)
	c := NewGainAbilityEffect("source", "alice", "Reach", Objects("relic"), DurationEndOfGame)
	env.ls.AddEffect(a, 1)
	env.ls.AddEffect(b, 2)
	env.ls.AddEffect(c, 3)
	a.DeclareDependency(b.ID())
	b.DeclareDependency(c.ID())
	c.DeclareDependency(a.ID())

	eval := env.ls.Evaluate(env, target)
	assert.True(t, eval.DependencyCycle)
	// a breaks the cycle by timestamp; b still waits for c
	assert.Equal(t, []string{a.ID(), c.ID(), b.ID()}, eval.Applied)
	assert.Equal(t, []string{"Flying", "Reach", "Vigilance"}, eval.Snapshot.Abilities)
	assert.Equal(t, 1, logs.Len())
}

func TestCopyEffectReflectsCopiableValues(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("anthem", "bob", object.TypeEnchantment))
	bears := env.add(creature("bears", "bob", 2, 2))
	clone := env.add(creature("clone", "alice", 0, 0))
	clone.Name = "Clone"

	env.ls.AddEffect(NewCopyEffect("clone", "alice", "bears", DurationWhileOnBattlefield), 1)
	// boosts are not copiable
	env.ls.AddEffect(NewFixedBoostEffect("anthem", "bob", Matching(object.FilterControlledCreature), DurationWhileOnBattlefield, 1, 1), 2)

	got := env.ls.Evaluate(env, clone).Snapshot
	assert.Equal(t, "bears", got.Name)
	assert.Equal(t, 2, got.Power)
	assert.Equal(t, "alice", got.ControllerID)

	// the copy follows changes to the copiable values of the original
	bears.Name = "Runeclaw Bear"
	got = env.ls.Evaluate(env, clone).Snapshot
	assert.Equal(t, "Runeclaw Bear", got.Name)

	env.ls.RemoveBySource("clone")
	assert.Equal(t, "Clone", env.ls.Evaluate(env, clone).Snapshot.Name)
}

func TestCopyCurrentCharacteristics(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("anthem", "bob", object.TypeEnchantment))
	env.add(creature("bears", "bob", 2, 2))
	token := env.add(creature("token", "alice", 0, 0))

	copyEffect := NewCopyEffect("token", "alice", "bears", DurationWhileOnBattlefield)
	copyEffect.Mode = CopyCurrentCharacteristics
	env.ls.AddEffect(copyEffect, 1)
	env.ls.AddEffect(NewFixedBoostEffect("anthem", "bob", Matching(object.FilterControlledCreature), DurationWhileOnBattlefield, 1, 1), 2)

	got := env.ls.Evaluate(env, token).Snapshot
	assert.Equal(t, 3, got.Power, "copied the boosted power; alice's token is not boosted by bob's anthem")
}

func TestMutualCopiesTerminate(t *testing.T) {
	env := newTestEnv()
	a := env.add(creature("a", "alice", 1, 1))
	env.add(creature("b", "bob", 2, 2))
	env.ls.AddEffect(NewCopyEffect("a", "alice", "b", DurationEndOfGame), 1)
	env.ls.AddEffect(NewCopyEffect("b", "bob", "a", DurationEndOfGame), 2)

	eval := env.ls.Evaluate(env, a)
	require.NotNil(t, eval.Snapshot)
	// b copies a's in-progress (uncopied) values, a copies that
	assert.Equal(t, "a", eval.Snapshot.Name)
	assert.False(t, eval.Reentrant)
}

func TestInactiveEffectsDoNotApply(t *testing.T) {
	env := newTestEnv()
	anthem := env.add(permanent("anthem", "alice", object.TypeEnchantment))
	bears := env.add(creature("bears", "alice", 2, 2))
	env.ls.AddEffect(NewFixedBoostEffect("anthem", "alice", Matching(object.FilterControlledCreature), DurationWhileOnBattlefield, 1, 1), 1)

	anthem.Zone = object.ZoneGraveyard
	assert.Equal(t, 2, env.ls.Evaluate(env, bears).Snapshot.Power)
}

func TestLayerOrderAcrossLayers(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("source", "alice", object.TypeEnchantment))
	relic := env.add(permanent("relic", "bob", object.TypeArtifact))

	// registered in reverse layer order
	env.ls.AddEffect(NewFixedBoostEffect("source", "alice", Matching(object.FilterControlledCreature), DurationEndOfGame, 1, 1), 1)
	env.ls.AddEffect(NewRestrictionEffect("source", "alice", object.RestrictCantBlock, Matching(object.FilterCreature), DurationEndOfGame), 2)
	for _, e := range BecomeCreature("source", "alice", Objects("relic"), DurationEndOfTurn, 3, 3, "Golem") {
		env.ls.AddEffect(e, 3)
	}
	env.ls.AddEffect(NewGainControlEffect("source", "alice", Objects("relic"), DurationEndOfTurn), 4)

	got := env.ls.Evaluate(env, relic).Snapshot
	assert.Equal(t, "alice", got.ControllerID)
	assert.True(t, got.IsCreature())
	assert.True(t, got.HasSubtype("Golem"))
	assert.Equal(t, 4, got.Power)
	assert.True(t, got.Restrictions.Has(object.RestrictCantBlock))
}

func TestEvaluateThroughStopsAtLayer(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("source", "alice", object.TypeEnchantment))
	bears := env.add(creature("bears", "alice", 2, 2))
	env.ls.AddEffect(NewSetColorEffect("source", "alice", object.ColorBlue, Objects("bears"), DurationEndOfTurn), 1)
	env.ls.AddEffect(NewFixedBoostEffect("source", "alice", Objects("bears"), DurationEndOfTurn, 1, 1), 2)

	through := env.ls.EvaluateThrough(env, bears, LayerColor, SubLayerNA).Snapshot
	assert.Equal(t, object.ColorBlue, through.Colors)
	assert.Equal(t, 2, through.Power)
}

func TestLoseAllAbilitiesAfterGain(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("source", "alice", object.TypeEnchantment))
	bird := env.add(creature("bird", "alice", 1, 1))
	bird.Abilities = []string{"Flying"}

	env.ls.AddEffect(NewLoseAllAbilitiesEffect("source", "alice", Objects("bird"), DurationEndOfTurn), 1)
	env.ls.AddEffect(NewGainAbilityEffect("source", "alice", "Haste", Objects("bird"), DurationEndOfTurn), 2)

	got := env.ls.Evaluate(env, bird).Snapshot
	assert.Equal(t, []string{"Haste"}, got.Abilities)
}

func TestTextChange(t *testing.T) {
	env := newTestEnv()
	env.add(permanent("source", "alice", object.TypeEnchantment))
	walker := env.add(creature("walker", "bob", 2, 2))
	walker.Subtypes = []string{"Forest"}
	walker.Text = "Forestwalk"

	env.ls.AddEffect(NewTextChangeEffect("source", "alice", "Forest", "Island", Objects("walker"), DurationEndOfGame), 1)
	got := env.ls.Evaluate(env, walker).Snapshot
	assert.Equal(t, "Islandwalk", got.Text)
	assert.Equal(t, []string{"Island"}, got.Subtypes)
	assert.Equal(t, []string{"Forest"}, walker.Subtypes)
}

const magnivoreText = "Magnivore's power and toughness are each equal to the number of sorcery cards in all graveyards."

func sorceries(env *testEnv, n int) {
	for i := range n {
		env.add(&object.Snapshot{ID: fmt.Sprintf("sorcery%d", i), OwnerID: "bob", Zone: object.ZoneGraveyard,
			Characteristics: object.Characteristics{Types: []object.CardType{object.TypeSorcery}}})
	}
}

func magnivoreCDA(sourceID, controllerID string) ContinuousEffect {
	e := NewSetPowerToughnessSourceEffect(sourceID, controllerID, values.NewCardsInAllGraveyards(object.FilterSorceryCard))
	FromAbility(e, magnivoreText)
	return e
}

func TestRemovedAbilityStopsItsEffects(t *testing.T) {
	tests := []struct {
		name     string
		loseAll  bool
		wantPT   int
		wantBear int
	}{
		{name: "abilities intact", wantPT: 2, wantBear: 3},
		{name: "all abilities lost", loseAll: true, wantPT: 0, wantBear: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			sorceries(env, 2)
			magnivore := env.add(creature("magnivore", "alice", 0, 0))
			magnivore.Abilities = []string{"Haste", magnivoreText}
			anthem := env.add(permanent("anthem", "alice", object.TypeEnchantment))
			anthem.Abilities = []string{"Creatures you control get +1/+1."}
			bears := env.add(creature("bears", "alice", 2, 2))

			env.ls.AddEffect(magnivoreCDA("magnivore", "alice"), 1)
			boost := NewFixedBoostEffect("anthem", "alice", Matching(object.FilterControlledCreature), DurationWhileOnBattlefield, 1, 1)
			FromAbility(boost, "Creatures you control get +1/+1.")
			env.ls.AddEffect(boost, 2)
			if tt.loseAll {
				env.ls.AddEffect(NewLoseAllAbilitiesEffect("spell", "bob", Objects("magnivore", "anthem"), DurationEndOfTurn), 3)
			}

			got := env.ls.Evaluate(env, magnivore).Snapshot
			want := tt.wantPT
			if !tt.loseAll {
				want++ // the anthem applies to magnivore too
			}
			assert.Equal(t, want, got.Power)
			assert.Equal(t, want, got.Toughness)
			assert.Equal(t, tt.wantBear, env.ls.Evaluate(env, bears).Snapshot.Power)
		})
	}
}

func TestLaterLayerWaitsForAbilityRemoval(t *testing.T) {
	env := newTestEnv()
	sorceries(env, 3)
	magnivore := env.add(creature("magnivore", "alice", 0, 0))
	magnivore.Abilities = []string{magnivoreText}

	// the removal is newer than the ability, but layer 6 comes first
	cda := magnivoreCDA("magnivore", "alice")
	env.ls.AddEffect(cda, 1)
	through := env.ls.EvaluateThrough(env, magnivore, LayerPowerToughness, SubLayerCharacteristicDefining).Snapshot
	assert.Equal(t, 3, through.Power)

	lose := NewLoseAllAbilitiesEffect("spell", "bob", Objects("magnivore"), DurationEndOfTurn)
	env.ls.AddEffect(lose, 2)
	eval := env.ls.Evaluate(env, magnivore)
	assert.Equal(t, 0, eval.Snapshot.Power)
	assert.Empty(t, eval.Snapshot.Abilities)
	assert.Equal(t, []string{lose.ID()}, eval.Applied)
}

func TestCopiedAbilityWorksForTheCopy(t *testing.T) {
	env := newTestEnv()
	sorceries(env, 2)
	magnivore := env.add(creature("magnivore", "bob", 0, 0))
	magnivore.Name = "Magnivore"
	magnivore.Abilities = []string{magnivoreText}
	bears := env.add(creature("bears", "alice", 2, 2))
	bears.Abilities = []string{"Bears' own ability"}

	env.ls.AddEffect(magnivoreCDA("magnivore", "bob"), 1)
	own := NewFixedBoostEffect("bears", "alice", Self(), DurationWhileOnBattlefield, 5, 5)
	FromAbility(own, "Bears' own ability")
	env.ls.AddEffect(own, 2)
	require.Equal(t, 7, env.ls.Evaluate(env, bears).Snapshot.Power)

	env.ls.AddEffect(NewCopyEffect("bears", "alice", "magnivore", DurationEndOfTurn), 3)
	// the copy's instance of the copied ability is bound to the copy
	env.ls.AddEffect(magnivoreCDA("bears", "alice"), 4)

	got := env.ls.Evaluate(env, bears).Snapshot
	assert.Equal(t, "Magnivore", got.Name)
	assert.Equal(t, 2, got.Power, "the printed boost is gone with the printed ability")
	assert.Equal(t, 2, got.Toughness)
	assert.Equal(t, 2, env.ls.Evaluate(env, magnivore).Snapshot.Power)
}

func TestEvaluateThroughRejectsUnknownSubLayer(t *testing.T) {
	env := newTestEnv()
	bears := env.add(creature("bears", "alice", 2, 2))

	tests := []struct {
		layer Layer
		sub   SubLayer
		ok    bool
	}{
		{LayerCopy, SubLayerNA, true},
		{LayerAbility, SubLayerCharacteristicDefining, true},
		{LayerPowerToughness, SubLayerCounters, true},
		{LayerPowerToughness, SubLayerNA, false},
		{LayerCopy, SubLayerSetPT, false},
		{Layer(42), SubLayerNA, false},
	}
	for _, tt := range tests {
		eval := func() { env.ls.EvaluateThrough(env, bears, tt.layer, tt.sub) }
		if tt.ok {
			assert.NotPanics(t, eval, "%s %s", tt.layer, tt.sub)
		} else {
			assert.Panics(t, eval, "%s %s", tt.layer, tt.sub)
		}
	}
}
