package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

func TestPreventDamageEffect_PreventAll(t *testing.T) {
	env := newTestEnv()
	effect := NewPreventDamageEffect("fog", "alice", "target1", 0, DurationEndOfTurn)

	event := rules.NewAmountEvent(rules.EventDamagePermanent, "target1", "attacker1", "bob", 5)
	assert.True(t, effect.ChecksEventType(event.Type))
	assert.True(t, effect.Applies(env, event))

	replaced, completely := effect.ReplaceEvent(env, event)
	assert.True(t, completely)
	assert.Equal(t, 0, replaced.Amount)

	// preventing all damage never runs out
	assert.False(t, effect.Exhausted())
	assert.True(t, effect.Applies(env, event))
}

func TestPreventDamageEffect_Shield(t *testing.T) {
	env := newTestEnv()
	effect := NewPreventDamageEffect("shield", "alice", "target1", 5, DurationEndOfTurn)

	first, _ := effect.ReplaceEvent(env, rules.NewAmountEvent(rules.EventDamagePermanent, "target1", "attacker1", "bob", 3))
	assert.Equal(t, 0, first.Amount)
	assert.Equal(t, 2, effect.Shield)

	second, completely := effect.ReplaceEvent(env, rules.NewAmountEvent(rules.EventDamagePermanent, "target1", "attacker1", "bob", 4))
	assert.False(t, completely)
	assert.Equal(t, 2, second.Amount)
	assert.True(t, effect.Exhausted())

	assert.False(t, effect.Applies(env, rules.NewAmountEvent(rules.EventDamagePermanent, "target1", "attacker1", "bob", 2)))
}

func TestPreventDamageEffect_Filters(t *testing.T) {
	env := newTestEnv()
	effect := NewPreventDamageEffect("shield", "alice", "target1", 0, DurationEndOfTurn)
	effect.FromSource = "attacker1"

	assert.True(t, effect.Applies(env, rules.NewAmountEvent(rules.EventDamagePermanent, "target1", "attacker1", "bob", 5)))
	assert.False(t, effect.Applies(env, rules.NewAmountEvent(rules.EventDamagePermanent, "target2", "attacker1", "bob", 5)))
	assert.False(t, effect.Applies(env, rules.NewAmountEvent(rules.EventDamagePermanent, "target1", "attacker2", "bob", 5)))
	assert.False(t, effect.Applies(env, rules.NewAmountEvent(rules.EventDamagePermanent, "target1", "attacker1", "bob", 0)))
}

func TestPreventDamageEffect_PlayerDamage(t *testing.T) {
	env := newTestEnv()
	effect := NewPreventDamageEffect("shield", "alice", "alice", 0, DurationEndOfTurn)

	event := rules.NewAmountEvent(rules.EventDamagePlayer, "alice", "bolt", "bob", 3)
	assert.True(t, effect.ChecksEventType(rules.EventDamagePlayer))
	assert.True(t, effect.Applies(env, event))
	assert.False(t, effect.ChecksEventType(rules.EventLoseLife))
}

func TestDoubleAmountEffect(t *testing.T) {
	env := newTestEnv()
	effect := NewDoubleAmountEffect("boon", "alice", "alice", DurationWhileOnBattlefield, rules.EventGainLife)

	gain := rules.NewAmountEvent(rules.EventGainLife, "alice", "elixir", "alice", 3)
	assert.True(t, effect.Applies(env, gain))
	replaced, completely := effect.ReplaceEvent(env, gain)
	assert.False(t, completely)
	assert.Equal(t, 6, replaced.Amount)

	assert.False(t, effect.Applies(env, rules.NewAmountEvent(rules.EventGainLife, "bob", "elixir", "bob", 3)))
	assert.False(t, effect.ChecksEventType(rules.EventLoseLife))
}

func TestExileInsteadOfGraveyardEffect(t *testing.T) {
	env := newTestEnv()
	effect := NewExileInsteadOfGraveyardEffect("rest", "alice", "", object.FilterCreature, DurationWhileOnBattlefield)

	bears := creature("bears", "bob", 2, 2)
	dies := rules.NewZoneChangeEvent(bears, "", "bob", object.ZoneBattlefield, object.ZoneGraveyard)
	assert.True(t, effect.Applies(env, dies))
	replaced, completely := effect.ReplaceEvent(env, dies)
	assert.False(t, completely)
	assert.Equal(t, object.ZoneExile, replaced.ToZone)

	bounce := rules.NewZoneChangeEvent(bears, "", "bob", object.ZoneBattlefield, object.ZoneHand)
	assert.False(t, effect.Applies(env, bounce), "only graveyard moves are replaced")

	land := permanent("forest", "bob", object.TypeLand)
	assert.False(t, effect.Applies(env, rules.NewZoneChangeEvent(land, "", "bob", object.ZoneBattlefield, object.ZoneGraveyard)))
}

func TestExileInsteadOfGraveyardEffect_SingleObject(t *testing.T) {
	env := newTestEnv()
	effect := NewExileInsteadOfGraveyardEffect("unearth", "alice", "bears", nil, DurationEndOfGame)

	assert.True(t, effect.Applies(env, rules.NewZoneChangeEvent(creature("bears", "alice", 2, 2), "", "alice", object.ZoneBattlefield, object.ZoneGraveyard)))
	assert.False(t, effect.Applies(env, rules.NewZoneChangeEvent(creature("elves", "alice", 1, 1), "", "alice", object.ZoneBattlefield, object.ZoneGraveyard)))
}

func TestCantCounterSourceEffect(t *testing.T) {
	env := newTestEnv()
	effect := NewCantCounterSourceEffect("spell", "alice")

	assert.True(t, effect.Prevents(env, rules.NewEvent(rules.EventCounter, "spell", "cancel", "bob")))
	assert.False(t, effect.Prevents(env, rules.NewEvent(rules.EventCounter, "other", "cancel", "bob")))
	assert.Equal(t, "this spell can't be countered", effect.Text())
}

func TestBaseReplacementEffect(t *testing.T) {
	base := NewBaseReplacementEffect("source", "alice", DurationEndOfTurn, true, rules.EventDrawCard)
	assert.True(t, base.IsSelfReplacement())
	assert.True(t, base.ChecksEventType(rules.EventDrawCard))
	assert.False(t, base.ChecksEventType(rules.EventDrewCard))
	assert.Empty(t, base.ID(), "ids are assigned by the manager")
	assert.Equal(t, "alice", base.ControllerID())
}
