package cards

import (
	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/targeting"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

var (
	anyTarget      = targeting.Single(targeting.TargetTypeAny, nil, "any target")
	targetCreature = targeting.Single(targeting.TargetTypeCreature, nil, "target creature")
	targetSpell    = targeting.Single(targeting.TargetTypeSpell, nil, "target spell")
)

func registerSpells(c *Catalogue) {
	c.Register("Lightning Bolt", func() game.CardSpec {
		text := "Lightning Bolt deals 3 damage to any target."
		return game.CardSpec{
			Characteristics: spell("Lightning Bolt", "{R}", object.ColorRed, object.TypeInstant, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.DealDamage{Amount: values.Static(3)}).WithTargets(anyTarget),
			},
		}
	})
	c.Register("Shock", func() game.CardSpec {
		text := "Shock deals 2 damage to any target."
		return game.CardSpec{
			Characteristics: spell("Shock", "{R}", object.ColorRed, object.TypeInstant, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.DealDamage{Amount: values.Static(2)}).WithTargets(anyTarget),
			},
		}
	})
	c.Register("Cancel", func() game.CardSpec {
		text := "Counter target spell."
		return game.CardSpec{
			Characteristics: spell("Cancel", "{1}{U}{U}", object.ColorBlue, object.TypeInstant, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.CounterSpell{}).WithTargets(targetSpell),
			},
		}
	})
	c.Register("Divination", func() game.CardSpec {
		text := "Draw two cards."
		return game.CardSpec{
			Characteristics: spell("Divination", "{2}{U}", object.ColorBlue, object.TypeSorcery, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.DrawCards{Who: game.Controller, Amount: values.Static(2)}),
			},
		}
	})
	c.Register("Giant Growth", func() game.CardSpec {
		text := "Target creature gets +3/+3 until end of turn."
		return game.CardSpec{
			Characteristics: spell("Giant Growth", "{G}", object.ColorGreen, object.TypeInstant, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.Boost(3, 3, 0)).WithTargets(targetCreature),
			},
		}
	})
	c.Register("Disfigure", func() game.CardSpec {
		text := "Target creature gets -2/-2 until end of turn."
		return game.CardSpec{
			Characteristics: spell("Disfigure", "{B}", object.ColorBlack, object.TypeInstant, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.Boost(-2, -2, 0)).WithTargets(targetCreature),
			},
		}
	})
	c.Register("Infest", func() game.CardSpec {
		text := "All creatures get -2/-2 until end of turn."
		return game.CardSpec{
			Characteristics: spell("Infest", "{1}{B}{B}", object.ColorBlack, object.TypeSorcery, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.ApplyContinuous{
					Description: text,
					Build: func(src values.Source, _ [][]string) []effects.ContinuousEffect {
						return []effects.ContinuousEffect{
							effects.NewFixedBoostEffect(src.ID, src.ControllerID, effects.Matching(object.FilterCreature), effects.DurationEndOfTurn, -2, -2),
						}
					},
				}),
			},
		}
	})
	c.Register("Bandage", func() game.CardSpec {
		text := "Prevent the next 1 damage that would be dealt to any target this turn. Draw a card."
		return game.CardSpec{
			Characteristics: spell("Bandage", "{W}", object.ColorWhite, object.TypeInstant, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text,
					game.PreventDamage{Shield: 1},
					game.DrawCards{Who: game.Controller, Amount: values.Static(1)},
				).WithTargets(anyTarget),
			},
		}
	})
	c.Register("Savor the Moment", func() game.CardSpec {
		text := "Take an extra turn after this one. Skip the untap step of that turn."
		return game.CardSpec{
			Characteristics: spell("Savor the Moment", "{1}{U}{U}", object.ColorBlue, object.TypeSorcery, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.AddExtraTurn{}, game.SkipNextUntap{Who: game.Controller}),
			},
		}
	})
	c.Register("Cytoshape", func() game.CardSpec {
		text := "Choose a creature on the battlefield. Target creature becomes a copy of that creature until end of turn."
		return game.CardSpec{
			Characteristics: spell("Cytoshape", "{1}{G}{U}", object.ColorGreen|object.ColorBlue, object.TypeInstant, text),
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.ApplyContinuous{
					Description: text,
					Build: func(src values.Source, targets [][]string) []effects.ContinuousEffect {
						if len(targets) < 2 || len(targets[0]) == 0 || len(targets[1]) == 0 {
							return nil
						}
						return []effects.ContinuousEffect{&effects.CopyEffect{
							Base:     effects.NewBase(src.ID, src.ControllerID, effects.LayerCopy, effects.SubLayerNA, effects.DurationEndOfTurn, effects.Objects(targets[1]...)),
							CopiedID: targets[0][0],
						}}
					},
				}).WithTargets(
					targeting.Single(targeting.TargetTypeCreature, nil, "creature to copy"),
					targetCreature,
				),
			},
		}
	})
}
