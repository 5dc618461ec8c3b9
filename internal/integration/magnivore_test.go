package integration

import (
	"testing"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game"
	"github.com/magefree/mage-engine-go/internal/game/cards"
	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

func newDuel(t *testing.T) (*game.Game, *cards.Catalogue) {
	t.Helper()
	cat := cards.Default()
	deck := make([]string, 20)
	for i := range deck {
		deck[i] = "Island"
	}
	g, err := game.New("magnivore-duel", []game.PlayerConfig{
		{ID: "alice", Name: "Alice", Deck: deck},
		{ID: "bob", Name: "Bob", Deck: deck},
	}, cat, game.WithLogger(zap.NewNop()), game.WithSeed(42), game.WithOpeningHand(0))
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Failed to start game: %v", err)
	}
	return g, cat
}

func passUntil(t *testing.T, g *game.Game, done func() bool) {
	t.Helper()
	for i := 0; i < 100 && !done(); i++ {
		holder := g.PriorityHolder()
		if holder == "" {
			t.Fatalf("Nobody holds priority at %s", g.Step())
		}
		if err := g.ProcessAction(game.PlayerAction{PlayerID: holder, ActionType: game.ActionPass}); err != nil {
			t.Fatalf("Failed to pass: %v", err)
		}
	}
	if !done() {
		t.Fatalf("Condition never reached, stuck at turn %d %s", g.TurnNumber(), g.Step())
	}
}

func create(t *testing.T, g *game.Game, cat *cards.Catalogue, owner, name string, zone object.Zone) string {
	t.Helper()
	spec, ok := cat.Lookup(name)
	if !ok {
		t.Fatalf("Unknown card %q", name)
	}
	return g.CreateCard(owner, spec, zone).ID()
}

// tapLands puts n basic lands onto the battlefield and taps them for mana.
func tapLands(t *testing.T, g *game.Game, cat *cards.Catalogue, owner, name string, n int) {
	t.Helper()
	for range n {
		id := create(t, g, cat, owner, name, object.ZoneBattlefield)
		c, _ := g.Card(id)
		err := g.ProcessAction(game.PlayerAction{
			PlayerID:   owner,
			ActionType: game.ActionActivateAbility,
			ObjectID:   id,
			AbilityID:  c.Abilities()[0].ID(),
		})
		if err != nil {
			t.Fatalf("Failed to tap %s: %v", name, err)
		}
	}
}

// TestMagnivoreLayers walks a characteristic-defining ability through the
// layer system: Magnivore counts sorceries in every graveyard in layer 7a and
// a +4/+4 boost applies on top of it in layer 7d.
func TestMagnivoreLayers(t *testing.T) {
	g, cat := newDuel(t)
	passUntil(t, g, func() bool { return g.Step() == rules.StepMain1 })

	create(t, g, cat, "alice", "Infest", object.ZoneGraveyard)
	create(t, g, cat, "bob", "Savor the Moment", object.ZoneGraveyard)
	magnivore := create(t, g, cat, "alice", "Magnivore", object.ZoneHand)

	// In the hand it already has its characteristic-defining P/T.
	if s, _ := g.Characteristics(magnivore); s.Toughness != 2 {
		t.Fatalf("Expected Magnivore in hand to be 2/2, got %s", s.PT())
	}

	tapLands(t, g, cat, "alice", "Mountain", 4)
	if err := g.ProcessAction(game.PlayerAction{PlayerID: "alice", ActionType: game.ActionCastSpell, ObjectID: magnivore}); err != nil {
		t.Fatalf("Failed to cast Magnivore: %v", err)
	}
	passUntil(t, g, func() bool { return len(g.Stack()) == 0 })

	g.Layers().AddEffect(effects.NewFixedBoostEffect(magnivore, "alice", effects.Self(), effects.DurationWhileOnBattlefield, 4, 4), 1<<40)

	set, ok := g.CharacteristicsThrough(magnivore, effects.LayerPowerToughness, effects.SubLayerSetPT)
	if !ok {
		t.Fatal("Magnivore is not on the battlefield")
	}
	if set.Toughness != 2 {
		t.Errorf("Expected toughness 2 after layer 7b, got %d", set.Toughness)
	}
	final, _ := g.Characteristics(magnivore)
	if final.Toughness != 6 || final.Power != 6 {
		t.Errorf("Expected Magnivore to be 6/6, got %s", final.PT())
	}
	if !final.HasAbility("Haste") {
		t.Errorf("Expected Magnivore to have haste, abilities: %v", final.Abilities)
	}

	// A third sorcery in a graveyard is seen immediately.
	divination := create(t, g, cat, "alice", "Divination", object.ZoneHand)
	tapLands(t, g, cat, "alice", "Island", 3)
	if err := g.ProcessAction(game.PlayerAction{PlayerID: "alice", ActionType: game.ActionCastSpell, ObjectID: divination}); err != nil {
		t.Fatalf("Failed to cast Divination: %v", err)
	}
	passUntil(t, g, func() bool { return len(g.Stack()) == 0 })

	set, _ = g.CharacteristicsThrough(magnivore, effects.LayerPowerToughness, effects.SubLayerSetPT)
	final, _ = g.Characteristics(magnivore)
	if set.Toughness != 3 || final.Toughness != 7 {
		t.Errorf("Expected toughness 3 then 7 with three sorceries, got %d then %d", set.Toughness, final.Toughness)
	}
	p, _ := g.Player("alice")
	if len(p.Hand()) != 2 {
		t.Errorf("Expected Divination to draw 2 cards, hand has %d", len(p.Hand()))
	}
}
