package cards

import (
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
)

var basicLands = []struct {
	name    string
	subtype string
	mana    mana.ManaType
}{
	{"Plains", "Plains", mana.White},
	{"Island", "Island", mana.Blue},
	{"Swamp", "Swamp", mana.Black},
	{"Mountain", "Mountain", mana.Red},
	{"Forest", "Forest", mana.Green},
}

func registerBasics(c *Catalogue) {
	for _, l := range basicLands {
		c.Register(l.name, func() game.CardSpec {
			return game.CardSpec{
				Characteristics: object.Characteristics{
					Name:       l.name,
					Types:      []object.CardType{object.TypeLand},
					Subtypes:   []string{l.subtype},
					Supertypes: []string{"Basic"},
				},
				Abilities: []game.Ability{game.NewManaAbility(l.mana)},
			}
		})
	}
}

func creature(name, cost string, colors object.Color, power, toughness int, subtypes ...string) object.Characteristics {
	return object.Characteristics{
		Name:      name,
		ManaCost:  cost,
		Colors:    colors,
		Types:     []object.CardType{object.TypeCreature},
		Subtypes:  subtypes,
		Power:     power,
		Toughness: toughness,
		HasPT:     true,
	}
}

func spell(name, cost string, colors object.Color, t object.CardType, text string) object.Characteristics {
	return object.Characteristics{
		Name:     name,
		ManaCost: cost,
		Colors:   colors,
		Types:    []object.CardType{t},
		Text:     text,
	}
}
