package cards

import (
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/targeting"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

var filterKithkin = object.NewFilter("Kithkin", object.HasSubtype("Kithkin"))

// KithkinToken is the 1/1 white Kithkin Soldier creature token.
func KithkinToken() game.CardSpec {
	c := creature("Kithkin Soldier", "", object.ColorWhite, 1, 1, "Kithkin", "Soldier")
	return game.CardSpec{Characteristics: c}
}

// entersTheBattlefield triggers when the source enters the battlefield.
func entersTheBattlefield(_ *game.Game, src values.Source, ev rules.Event) bool {
	return ev.IsEntersBattlefield() && ev.TargetID == src.ID
}

func registerCreatures(c *Catalogue) {
	c.Register("Grizzly Bears", func() game.CardSpec {
		return game.CardSpec{Characteristics: creature("Grizzly Bears", "{1}{G}", object.ColorGreen, 2, 2, "Bear")}
	})
	c.Register("Memnite", func() game.CardSpec {
		ch := creature("Memnite", "{0}", object.Colorless, 1, 1, "Construct")
		ch.Types = []object.CardType{object.TypeArtifact, object.TypeCreature}
		return game.CardSpec{Characteristics: ch}
	})
	c.Register("Llanowar Elves", func() game.CardSpec {
		return game.CardSpec{
			Characteristics: creature("Llanowar Elves", "{G}", object.ColorGreen, 1, 1, "Elf", "Druid"),
			Abilities:       []game.Ability{game.NewManaAbility(mana.Green)},
		}
	})
	c.Register("Raging Goblin", func() game.CardSpec {
		return game.CardSpec{
			Characteristics: creature("Raging Goblin", "{R}", object.ColorRed, 1, 1, "Goblin", "Berserker"),
			Abilities:       []game.Ability{game.Keyword("Haste")},
		}
	})
	c.Register("Blood Artist", func() game.CardSpec {
		text := "Whenever Blood Artist or another creature dies, target player loses 1 life and you gain 1 life."
		return game.CardSpec{
			Characteristics: creature("Blood Artist", "{1}{B}", object.ColorBlack, 0, 1, "Vampire"),
			Abilities: []game.Ability{
				game.NewTriggeredAbility(object.ZoneBattlefield, text,
					func(_ *game.Game, _ values.Source, ev rules.Event) bool {
						return ev.IsDies() && ev.Target != nil && ev.Target.IsCreature()
					},
					game.LoseLife{Who: game.TargetPlayer, Amount: values.Static(1)},
					game.GainLife{Who: game.Controller, Amount: values.Static(1)},
				).WithTargets(targeting.Single(targeting.TargetTypePlayer, nil, "target player")).AsLookBack(),
			},
		}
	})
	c.Register("Magnivore", func() game.CardSpec {
		ch := creature("Magnivore", "{2}{R}{R}", object.ColorRed, 0, 0, "Lhurgoyf")
		return game.CardSpec{
			Characteristics: ch,
			Abilities: []game.Ability{
				game.Keyword("Haste"),
				game.NewStaticAbility(object.ZoneAll, "Magnivore's power and toughness are each equal to the number of sorcery cards in all graveyards.").
					WithContinuous(func(src values.Source) effects.ContinuousEffect {
						return effects.NewSetPowerToughnessSourceEffect(src.ID, src.ControllerID, values.NewCardsInAllGraveyards(object.FilterSorceryCard))
					}),
			},
		}
	})
	c.Register("Guardian of Cloverdell", func() game.CardSpec {
		return game.CardSpec{
			Characteristics: creature("Guardian of Cloverdell", "{5}{G}{G}", object.ColorGreen, 4, 5, "Treefolk", "Shaman"),
			Abilities: []game.Ability{
				game.NewTriggeredAbility(object.ZoneBattlefield,
					"When Guardian of Cloverdell enters the battlefield, create three 1/1 white Kithkin Soldier creature tokens.",
					entersTheBattlefield,
					game.CreateTokens{Token: KithkinToken(), Amount: values.Static(3)},
				),
				game.NewActivatedAbility(object.ZoneBattlefield, "{G}, Sacrifice a Kithkin: You gain 1 life.",
					[]game.Cost{game.NewManaCost("{G}"), game.Sacrifice{Filter: filterKithkin}},
					game.GainLife{Who: game.Controller, Amount: values.Static(1)},
				),
			},
		}
	})
	c.Register("Nessian Asp", func() game.CardSpec {
		return game.CardSpec{
			Characteristics: creature("Nessian Asp", "{4}{G}", object.ColorGreen, 4, 5, "Snake"),
			Abilities: []game.Ability{
				game.Keyword("Reach"),
				game.NewActivatedAbility(object.ZoneBattlefield, "{6}{G}: Monstrosity 4.",
					[]game.Cost{game.NewManaCost("{6}{G}")},
					game.Monstrosity{N: values.Static(4)},
				),
			},
		}
	})
	c.Register("Carnage Tyrant", func() game.CardSpec {
		return game.CardSpec{
			Characteristics: creature("Carnage Tyrant", "{4}{G}{G}", object.ColorGreen, 7, 6, "Dinosaur"),
			Abilities: []game.Ability{
				game.NewStaticAbility(object.ZoneStack, "This spell can't be countered.").
					WithRule(func(src values.Source) effects.RuleModifyingEffect {
						return effects.NewCantCounterSourceEffect(src.ID, src.ControllerID)
					}),
				game.Keyword("Trample"),
				game.NewStaticAbility(object.ZoneBattlefield, "Hexproof").
					WithContinuous(func(src values.Source) effects.ContinuousEffect {
						return effects.NewRestrictionEffect(src.ID, src.ControllerID, object.RestrictCantBeTargeted, effects.Self(), effects.DurationWhileOnBattlefield)
					}),
			},
		}
	})
}

func enchantment(name, cost string, colors object.Color, text string) object.Characteristics {
	return object.Characteristics{
		Name:     name,
		ManaCost: cost,
		Colors:   colors,
		Types:    []object.CardType{object.TypeEnchantment},
		Text:     text,
	}
}

func registerEnchantments(c *Catalogue) {
	c.Register("Glorious Anthem", func() game.CardSpec {
		text := "Creatures you control get +1/+1."
		return game.CardSpec{
			Characteristics: enchantment("Glorious Anthem", "{1}{W}{W}", object.ColorWhite, text),
			Abilities: []game.Ability{
				game.NewStaticAbility(object.ZoneBattlefield, text).
					WithContinuous(func(src values.Source) effects.ContinuousEffect {
						return effects.NewFixedBoostEffect(src.ID, src.ControllerID, effects.Matching(object.FilterControlledCreature), effects.DurationWhileOnBattlefield, 1, 1)
					}),
			},
		}
	})
	c.Register("Fecundity", func() game.CardSpec {
		text := "Whenever a creature dies, that creature's controller may draw a card."
		return game.CardSpec{
			Characteristics: enchantment("Fecundity", "{2}{G}", object.ColorGreen, text),
			Abilities: []game.Ability{
				game.NewTriggeredAbility(object.ZoneBattlefield, text,
					func(_ *game.Game, _ values.Source, ev rules.Event) bool {
						return ev.IsDies() && ev.Target != nil && ev.Target.IsCreature()
					},
					game.DrawCards{Who: game.TriggeringPlayer, Amount: values.Static(1)},
				).AsOptional(),
			},
		}
	})
	c.Register("Viridian Revel", func() game.CardSpec {
		text := "Whenever an artifact is put into an opponent's graveyard from the battlefield, you may draw a card."
		return game.CardSpec{
			Characteristics: enchantment("Viridian Revel", "{1}{G}{G}", object.ColorGreen, text),
			Abilities: []game.Ability{
				game.NewTriggeredAbility(object.ZoneBattlefield, text,
					func(_ *game.Game, src values.Source, ev rules.Event) bool {
						return ev.IsDies() && ev.Target != nil &&
							ev.Target.HasType(object.TypeArtifact) &&
							ev.Target.OwnerID != src.ControllerID
					},
					game.DrawCards{Who: game.Controller, Amount: values.Static(1)},
				).AsOptional(),
			},
		}
	})
	c.Register("Boon Reflection", func() game.CardSpec {
		text := "If you would gain life, you gain twice that much life instead."
		return game.CardSpec{
			Characteristics: enchantment("Boon Reflection", "{4}{W}", object.ColorWhite, text),
			Abilities: []game.Ability{
				game.NewStaticAbility(object.ZoneBattlefield, text).
					WithReplacement(func(src values.Source) effects.ReplacementEffect {
						return effects.NewDoubleAmountEffect(src.ID, src.ControllerID, src.ControllerID, effects.DurationWhileOnBattlefield, rules.EventGainLife)
					}),
			},
		}
	})
	c.Register("Leyline of the Void", func() game.CardSpec {
		text := "If a card would be put into an opponent's graveyard from anywhere, exile it instead."
		return game.CardSpec{
			Characteristics: enchantment("Leyline of the Void", "{2}{B}{B}", object.ColorBlack, text),
			Abilities: []game.Ability{
				game.NewStaticAbility(object.ZoneBattlefield, text).
					WithReplacement(func(src values.Source) effects.ReplacementEffect {
						return effects.NewExileInsteadOfGraveyardEffect(src.ID, src.ControllerID, "",
							object.NewFilter("card an opponent owns", object.OwnedByOpponent()), effects.DurationWhileOnBattlefield)
					}),
			},
		}
	})
}
