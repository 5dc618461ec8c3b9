package game_test

import (
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/cards"
	"github.com/magefree/mage-engine-go/internal/game/counters"
	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/targeting"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

const (
	alice = "alice"
	bob   = "bob"
)

// harness drives a two-player game in tests. Alice takes the first turn.
type harness struct {
	t   *testing.T
	g   *game.Game
	cat *cards.Catalogue
}

func deckOf(name string, n int) []string {
	deck := make([]string, n)
	for i := range deck {
		deck[i] = name
	}
	return deck
}

// newGame starts a game where both players have ten Islands in their library
// and no cards in hand.
func newGame(t *testing.T, opts ...game.Option) *harness {
	t.Helper()
	return newGameWithDecks(t, cards.Default(), deckOf("Island", 10), deckOf("Island", 10), opts...)
}

func newGameWithDecks(t *testing.T, cat *cards.Catalogue, aliceDeck, bobDeck []string, opts ...game.Option) *harness {
	t.Helper()
	base := []game.Option{
		game.WithLogger(zaptest.NewLogger(t)),
		game.WithSeed(7),
		game.WithOpeningHand(0),
	}
	g, err := game.New("test-game", []game.PlayerConfig{
		{ID: alice, Name: "Alice", Deck: aliceDeck},
		{ID: bob, Name: "Bob", Deck: bobDeck},
	}, cat, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return &harness{t: t, g: g, cat: cat}
}

// create puts a card from the catalogue straight into a zone.
func (h *harness) create(owner, name string, zone object.Zone) string {
	h.t.Helper()
	spec, ok := h.cat.Lookup(name)
	if !ok {
		h.t.Fatalf("unknown card %q", name)
	}
	return h.g.CreateCard(owner, spec, zone).ID()
}

func (h *harness) act(a game.PlayerAction) {
	h.t.Helper()
	if err := h.g.ProcessAction(a); err != nil {
		h.t.Fatalf("%s %s: %v", a.PlayerID, a.ActionType, err)
	}
}

func (h *harness) pass(player string) {
	h.t.Helper()
	h.act(game.PlayerAction{PlayerID: player, ActionType: game.ActionPass})
}

// passAll has both players pass in succession, starting with the holder.
func (h *harness) passAll() {
	h.t.Helper()
	for range 2 {
		holder := h.g.PriorityHolder()
		if holder == "" {
			h.t.Fatalf("nobody holds priority in %s", h.g.Step())
		}
		h.pass(holder)
	}
}

// toStep passes until player is active in step.
func (h *harness) toStep(player string, step rules.Step) {
	h.t.Helper()
	for range 60 {
		if h.g.ActivePlayerID() == player && h.g.Step() == step && h.g.PriorityHolder() != "" {
			return
		}
		h.passAll()
	}
	h.t.Fatalf("never reached %s of %s, stuck at turn %d %s", step, player, h.g.TurnNumber(), h.g.Step())
}

func (h *harness) cast(player, cardID string, targets ...[]string) {
	h.t.Helper()
	h.act(game.PlayerAction{PlayerID: player, ActionType: game.ActionCastSpell, ObjectID: cardID, Targets: targets})
}

func (h *harness) castErr(player, cardID string, targets ...[]string) error {
	return h.g.ProcessAction(game.PlayerAction{PlayerID: player, ActionType: game.ActionCastSpell, ObjectID: cardID, Targets: targets})
}

func (h *harness) activate(player, cardID string, kind game.AbilityKind) error {
	h.t.Helper()
	return h.g.ProcessAction(game.PlayerAction{
		PlayerID:   player,
		ActionType: game.ActionActivateAbility,
		ObjectID:   cardID,
		AbilityID:  h.abilityID(cardID, kind),
	})
}

func (h *harness) abilityID(cardID string, kind game.AbilityKind) string {
	h.t.Helper()
	c := h.card(cardID)
	for _, a := range c.Abilities() {
		if a.Kind() == kind {
			return a.ID()
		}
	}
	h.t.Fatalf("%s has no %s ability", cardID, kind)
	return ""
}

func (h *harness) mana(player string, t mana.ManaType, n int) {
	game.GiveMana(h.g, player, t, n)
}

func (h *harness) card(id string) *game.Card {
	h.t.Helper()
	c, ok := h.g.Card(id)
	if !ok {
		h.t.Fatalf("card %s does not exist", id)
	}
	return c
}

func (h *harness) player(id string) *game.Player {
	h.t.Helper()
	p, ok := h.g.Player(id)
	if !ok {
		h.t.Fatalf("player %s does not exist", id)
	}
	return p
}

func (h *harness) chars(id string) *object.Snapshot {
	h.t.Helper()
	s, ok := h.g.Characteristics(id)
	if !ok {
		h.t.Fatalf("object %s does not exist", id)
	}
	return s
}

func (h *harness) onBattlefield(id string) bool {
	return slices.Contains(h.g.Battlefield(), id)
}

// record collects events of the given types in the order they happen.
func (h *harness) record(types ...rules.EventType) *[]rules.Event {
	var events []rules.Event
	h.g.Subscribe(func(ev rules.Event) {
		if slices.Contains(types, ev.Type) {
			events = append(events, ev)
		}
	})
	return &events
}

func targetIDs(events []rules.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.TargetID
	}
	return out
}

// testCatalogue adds cards that exist only to exercise the engine.
func testCatalogue() *cards.Catalogue {
	cat := cards.Default()
	cat.Register("Wisp Lord", func() game.CardSpec {
		others := object.FilterControlledCreature.With("other creature you control", object.Another())
		return game.CardSpec{
			Characteristics: object.Characteristics{
				Name: "Wisp Lord", ManaCost: "{1}{W}", Types: []object.CardType{object.TypeCreature},
				Power: 1, Toughness: 1, HasPT: true,
			},
			Abilities: []game.Ability{
				game.NewStaticAbility(object.ZoneBattlefield, "Other creatures you control get +0/+1.").
					WithContinuous(func(src values.Source) effects.ContinuousEffect {
						return effects.NewFixedBoostEffect(src.ID, src.ControllerID, effects.Matching(others), effects.DurationWhileOnBattlefield, 0, 1)
					}),
			},
		}
	})
	cat.Register("Spirit Wisp", func() game.CardSpec {
		return game.CardSpec{Characteristics: object.Characteristics{
			Name: "Spirit Wisp", ManaCost: "{W}", Types: []object.CardType{object.TypeCreature},
			Power: 1, Toughness: 0, HasPT: true,
		}}
	})
	cat.Register("Virulent Sting", func() game.CardSpec {
		text := "Target player gets ten poison counters."
		return game.CardSpec{
			Characteristics: object.Characteristics{Name: "Virulent Sting", ManaCost: "{B}", Types: []object.CardType{object.TypeInstant}, Text: text},
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.AddCounters{Counter: counters.Poison, Amount: values.Static(10), OnTargets: true}).
					WithTargets(targeting.Single(targeting.TargetTypePlayer, nil, "target player")),
			},
		}
	})
	cat.Register("Silence Ray", func() game.CardSpec {
		text := "Target creature loses all abilities until end of turn."
		return game.CardSpec{
			Characteristics: object.Characteristics{Name: "Silence Ray", ManaCost: "{U}", Types: []object.CardType{object.TypeInstant}, Text: text},
			Abilities: []game.Ability{
				game.NewSpellAbility(text, game.ApplyContinuous{
					Description: text,
					Build: func(src values.Source, targets [][]string) []effects.ContinuousEffect {
						if len(targets) == 0 {
							return nil
						}
						return []effects.ContinuousEffect{
							effects.NewLoseAllAbilitiesEffect(src.ID, src.ControllerID, effects.Objects(targets[0]...), effects.DurationEndOfTurn),
						}
					},
				}).WithTargets(targeting.Single(targeting.TargetTypeCreature, nil, "target creature")),
			},
		}
	})
	cat.Register("Test Walker", func() game.CardSpec {
		return game.CardSpec{Characteristics: object.Characteristics{
			Name: "Test Walker", ManaCost: "{2}{U}", Types: []object.CardType{object.TypePlaneswalker}, Loyalty: 3,
		}}
	})
	cat.Register("Echo Chamber", func() game.CardSpec {
		text := "Whenever a player plays a land or this ability triggers, this ability triggers."
		return game.CardSpec{
			Characteristics: object.Characteristics{Name: "Echo Chamber", ManaCost: "{3}", Types: []object.CardType{object.TypeEnchantment}, Text: text},
			Abilities: []game.Ability{
				game.NewTriggeredAbility(object.ZoneBattlefield, text,
					func(_ *game.Game, src values.Source, ev rules.Event) bool {
						return ev.Type == rules.EventLandPlayed ||
							(ev.Type == rules.EventTriggeredAbility && ev.SourceID == src.ID)
					}),
			},
		}
	})
	cat.Register("Lonely Shrine", func() game.CardSpec {
		text := "At the beginning of your upkeep, if you control no creatures, you gain 3 life."
		return game.CardSpec{
			Characteristics: object.Characteristics{Name: "Lonely Shrine", ManaCost: "{2}", Types: []object.CardType{object.TypeEnchantment}, Text: text},
			Abilities: []game.Ability{
				game.NewTriggeredAbility(object.ZoneBattlefield, text,
					func(g *game.Game, src values.Source, ev rules.Event) bool {
						return ev.Type == rules.EventStepStarted && ev.Data == rules.StepUpkeep.String() &&
							g.ActivePlayerID() == src.ControllerID
					},
					game.GainLife{Who: game.Controller, Amount: values.Static(3)},
				).WithCondition(values.Not{Condition: values.ControlsPermanent{Filter: object.FilterCreature}}),
			},
		}
	})
	return cat
}
