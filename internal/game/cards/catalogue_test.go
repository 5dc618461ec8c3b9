package cards_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/cards"
	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
)

func TestDefaultCatalogueLookup(t *testing.T) {
	c := cards.Default()

	spec, ok := c.Lookup("lightning bolt")
	require.True(t, ok)
	assert.Equal(t, "Lightning Bolt", spec.Characteristics.Name)
	assert.True(t, spec.Characteristics.HasType(object.TypeInstant))

	_, ok = c.Lookup("Black Lotus")
	assert.False(t, ok)

	assert.Contains(t, c.Names(), "Magnivore")
	assert.Equal(t, len(c.Names()), c.Len())
}

func TestLookupBuildsFreshTemplates(t *testing.T) {
	c := cards.Default()
	a, _ := c.Lookup("Guardian of Cloverdell")
	b, _ := c.Lookup("Guardian of Cloverdell")
	require.Len(t, a.Abilities, 2)
	require.Len(t, b.Abilities, 2)
	assert.NotSame(t, a.Abilities[0], b.Abilities[0])
}

func TestEveryCardHasValidCost(t *testing.T) {
	c := cards.Default()
	for _, name := range c.Names() {
		spec, ok := c.Lookup(name)
		require.True(t, ok, name)
		ch := spec.Characteristics
		if ch.HasType(object.TypeLand) {
			assert.Empty(t, ch.ManaCost, name)
			continue
		}
		_, err := mana.ParseCost(ch.ManaCost)
		assert.NoError(t, err, name)
		if ch.HasType(object.TypeCreature) {
			assert.True(t, ch.HasPT, name)
		}
	}
}

func TestRegisterReplaces(t *testing.T) {
	c := cards.NewCatalogue()
	c.Register("Test Card", func() game.CardSpec {
		return game.CardSpec{Characteristics: object.Characteristics{Name: "Test Card", Power: 1}}
	})
	c.Register("TEST CARD", func() game.CardSpec {
		return game.CardSpec{Characteristics: object.Characteristics{Name: "Test Card", Power: 2}}
	})
	assert.Equal(t, 1, c.Len())
	spec, ok := c.Lookup("test card")
	require.True(t, ok)
	assert.Equal(t, 2, spec.Characteristics.Power)
	assert.Equal(t, []string{"TEST CARD"}, c.Names())
}

func TestKithkinToken(t *testing.T) {
	tok := cards.KithkinToken()
	assert.True(t, tok.Characteristics.HasSubtype("Kithkin"))
	assert.Equal(t, "1/1", tok.Characteristics.PT())
}
