package targeting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

type fakeState struct {
	objects map[string]*object.Snapshot
	players map[string]bool
}

func (s *fakeState) Object(id string) (*object.Snapshot, bool) {
	o, ok := s.objects[id]
	return o, ok
}

func (s *fakeState) PlayerInGame(id string) bool { return s.players[id] }

func newState() *fakeState {
	bears := &object.Snapshot{ID: "bears", ControllerID: "bob", Zone: object.ZoneBattlefield,
		Characteristics: object.Characteristics{Types: []object.CardType{object.TypeCreature}}}
	forest := &object.Snapshot{ID: "forest", ControllerID: "bob", Zone: object.ZoneBattlefield,
		Characteristics: object.Characteristics{Types: []object.CardType{object.TypeLand}}}
	spell := &object.Snapshot{ID: "divination", ControllerID: "bob", Zone: object.ZoneStack,
		Characteristics: object.Characteristics{Types: []object.CardType{object.TypeSorcery}}}
	return &fakeState{
		objects: map[string]*object.Snapshot{"bears": bears, "forest": forest, "divination": spell},
		players: map[string]bool{"alice": true, "bob": true},
	}
}

func TestIsLegal(t *testing.T) {
	v := NewValidator(newState())
	ctx := object.FilterContext{SourceID: "bolt", ControllerID: "alice"}

	anyTarget := Single(TargetTypeAny, nil, "any target")
	assert.True(t, v.IsLegal(anyTarget, "bears", ctx))
	assert.True(t, v.IsLegal(anyTarget, "bob", ctx))
	assert.False(t, v.IsLegal(anyTarget, "forest", ctx))

	spell := Single(TargetTypeSpell, nil, "target spell")
	assert.True(t, v.IsLegal(spell, "divination", ctx))
	assert.False(t, v.IsLegal(spell, "bears", ctx))

	land := Single(TargetTypePermanent, object.FilterLand, "target land")
	assert.True(t, v.IsLegal(land, "forest", ctx))
	assert.False(t, v.IsLegal(land, "bears", ctx))
	assert.False(t, v.IsLegal(Single(TargetTypePlayer, nil, "target player"), "bears", ctx))
}

func TestCantBeTargetedByOpponents(t *testing.T) {
	state := newState()
	state.objects["bears"].Restrictions = object.RestrictCantBeTargeted
	v := NewValidator(state)

	req := Single(TargetTypeCreature, nil, "target creature")
	assert.False(t, v.IsLegal(req, "bears", object.FilterContext{ControllerID: "alice"}))
	assert.True(t, v.IsLegal(req, "bears", object.FilterContext{ControllerID: "bob"}))
}

func TestValidate(t *testing.T) {
	v := NewValidator(newState())
	ctx := object.FilterContext{ControllerID: "alice"}
	reqs := []TargetRequirement{Single(TargetTypeCreature, nil, "target creature")}

	require.NoError(t, v.Validate("alice", reqs, [][]string{{"bears"}}, ctx))

	err := v.Validate("alice", reqs, [][]string{{"forest"}}, ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rules.ErrIllegalAction))

	assert.Error(t, v.Validate("alice", reqs, [][]string{{}}, ctx))
	assert.Error(t, v.Validate("alice", reqs, nil, ctx))

	two := []TargetRequirement{{Type: TargetTypeAny, MinTargets: 2, MaxTargets: 2, Description: "two targets"}}
	assert.Error(t, v.Validate("alice", two, [][]string{{"bob", "bob"}}, ctx))
}

func TestRecheck(t *testing.T) {
	state := newState()
	v := NewValidator(state)
	ctx := object.FilterContext{ControllerID: "alice"}
	reqs := []TargetRequirement{{Type: TargetTypeAny, MinTargets: 1, MaxTargets: 2, Description: "up to two targets"}}

	legal, fizzle := v.Recheck(reqs, [][]string{{"bears", "bob"}}, ctx)
	assert.False(t, fizzle)
	assert.Equal(t, []string{"bears", "bob"}, legal[0])

	state.objects["bears"].Zone = object.ZoneGraveyard
	legal, fizzle = v.Recheck(reqs, [][]string{{"bears", "bob"}}, ctx)
	assert.False(t, fizzle)
	assert.Equal(t, []string{"bob"}, legal[0])

	delete(state.players, "bob")
	_, fizzle = v.Recheck(reqs, [][]string{{"bears", "bob"}}, ctx)
	assert.True(t, fizzle)

	_, fizzle = v.Recheck(nil, nil, ctx)
	assert.False(t, fizzle, "untargeted abilities never fizzle")
}

func TestFormatAndParseTargets(t *testing.T) {
	assert.Equal(t, "a,b", FormatTargets([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, ParseTargets("a,b"))
	assert.Empty(t, ParseTargets(""))
}
