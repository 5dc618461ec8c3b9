package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

type fakeGame struct {
	objects   map[string]*object.Snapshot
	lastKnown map[string]*object.Snapshot
	life      map[string]int
	active    string
	watchers  *rules.WatcherRegistry
}

func newFakeGame() *fakeGame {
	return &fakeGame{
		objects:   map[string]*object.Snapshot{},
		lastKnown: map[string]*object.Snapshot{},
		life:      map[string]int{},
		watchers:  rules.NewWatcherRegistry(),
	}
}

func (g *fakeGame) add(s *object.Snapshot) { g.objects[s.ID] = s }

func (g *fakeGame) Object(id string) (*object.Snapshot, bool) {
	s, ok := g.objects[id]
	return s, ok
}

func (g *fakeGame) ObjectsIn(zone object.Zone) []*object.Snapshot {
	var out []*object.Snapshot
	for _, s := range g.objects {
		if zone.Includes(s.Zone) {
			out = append(out, s)
		}
	}
	return out
}

func (g *fakeGame) LastKnown(id string) (*object.Snapshot, bool) {
	s, ok := g.lastKnown[id]
	return s, ok
}

func (g *fakeGame) PlayerLife(id string) (int, bool) {
	l, ok := g.life[id]
	return l, ok
}

func (g *fakeGame) ActivePlayerID() string { return g.active }
func (g *fakeGame) TurnNumber() int        { return 1 }

func (g *fakeGame) Watcher(key string) (rules.Watcher, bool) { return g.watchers.Get(key) }

func card(id, owner string, zone object.Zone, types ...object.CardType) *object.Snapshot {
	return &object.Snapshot{
		ID:              id,
		OwnerID:         owner,
		ControllerID:    owner,
		Zone:            zone,
		Characteristics: object.Characteristics{Name: id, Types: types},
	}
}

func TestCardsInAllGraveyardsIsRecomputed(t *testing.T) {
	g := newFakeGame()
	g.add(card("bolt", "alice", object.ZoneGraveyard, object.TypeInstant))
	g.add(card("bears", "bob", object.ZoneGraveyard, object.TypeCreature))
	g.add(card("forest", "bob", object.ZoneBattlefield, object.TypeLand))

	v := NewCardsInAllGraveyards(object.NewFilter("instant or creature card", object.Or(
		object.HasType(object.TypeCreature), object.HasType(object.TypeInstant))))
	src := Source{ID: "magnivore", ControllerID: "alice"}

	assert.Equal(t, 2, v.Calculate(g, src))

	g.add(card("divination", "bob", object.ZoneGraveyard, object.TypeSorcery))
	assert.Equal(t, 2, v.Calculate(g, src))
	g.add(card("savor", "alice", object.ZoneGraveyard, object.TypeInstant))
	assert.Equal(t, 3, v.Calculate(g, src))
}

func TestCardsInControllerGraveyard(t *testing.T) {
	g := newFakeGame()
	g.add(card("a", "alice", object.ZoneGraveyard, object.TypeSorcery))
	g.add(card("b", "bob", object.ZoneGraveyard, object.TypeSorcery))

	v := &CardsInControllerGraveyard{Filter: object.FilterSorceryCard}
	assert.Equal(t, 1, v.Calculate(g, Source{ID: "x", ControllerID: "alice"}))
	assert.Equal(t, "sorcery cards in your graveyard", v.Message())
}

func TestCountersOnSourceUsesLastKnownInformation(t *testing.T) {
	g := newFakeGame()
	asp := card("asp", "alice", object.ZoneBattlefield, object.TypeCreature)
	asp.Counters = map[string]int{"+1/+1": 4}
	g.add(asp)

	v := &CountersOnSource{Counter: "+1/+1"}
	src := Source{ID: "asp", ControllerID: "alice"}
	assert.Equal(t, 4, v.Calculate(g, src))

	// left the battlefield: the live object is a new card in the graveyard
	g.lastKnown["asp"] = asp.Clone()
	g.objects["asp"] = card("asp", "alice", object.ZoneGraveyard, object.TypeCreature)
	assert.Equal(t, 4, v.Calculate(g, src))

	delete(g.lastKnown, "asp")
	assert.Equal(t, 0, v.Calculate(g, src))
}

func TestSourcePowerAndControllerLife(t *testing.T) {
	g := newFakeGame()
	s := card("bears", "alice", object.ZoneBattlefield, object.TypeCreature)
	s.Power, s.Toughness = 2, 2
	g.add(s)
	g.life["alice"] = 17

	src := Source{ID: "bears", ControllerID: "alice"}
	assert.Equal(t, 2, SourcePower{}.Calculate(g, src))
	assert.Equal(t, 17, ControllerLife{}.Calculate(g, src))
	assert.Equal(t, 0, ControllerLife{}.Calculate(g, Source{ControllerID: "nobody"}))
}

type countWatcher struct {
	*rules.BaseWatcher
	n int
}

func (w *countWatcher) Watch(rules.Event)   { w.n++ }
func (w *countWatcher) Count() int          { return w.n }
func (w *countWatcher) Copy() rules.Watcher { cp := *w; return &cp }

func TestWatcherCount(t *testing.T) {
	g := newFakeGame()
	v := CreaturesDiedThisTurn()
	assert.Equal(t, 0, v.Calculate(g, Source{}))

	w := &countWatcher{BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame, "CreaturesDied")}
	g.watchers.Add(w)
	g.watchers.Watch(rules.NewEvent(rules.EventZoneChange, "", "", ""))
	g.watchers.Watch(rules.NewEvent(rules.EventZoneChange, "", "", ""))
	assert.Equal(t, 2, v.Calculate(g, Source{}))
}

func TestCombinators(t *testing.T) {
	g := newFakeGame()
	sum := Sum{Static(2), Static(3)}
	assert.Equal(t, 5, sum.Calculate(g, Source{}))
	assert.Equal(t, -5, Negate(sum).Calculate(g, Source{}))
	assert.Equal(t, 10, Multiply{Value: sum, Factor: 2}.Calculate(g, Source{}))

	cp := sum.Copy()
	require.IsType(t, Sum{}, cp)
	assert.Equal(t, 5, cp.Calculate(g, Source{}))
}

func TestConditions(t *testing.T) {
	g := newFakeGame()
	g.active = "alice"
	g.add(card("kithkin", "alice", object.ZoneBattlefield, object.TypeCreature))
	g.add(card("other", "bob", object.ZoneBattlefield, object.TypeCreature))

	alice := Source{ID: "kithkin", ControllerID: "alice"}
	bob := Source{ID: "other", ControllerID: "bob"}

	assert.True(t, YourTurn{}.Apply(g, alice))
	assert.False(t, YourTurn{}.Apply(g, bob))
	assert.True(t, Not{Condition: YourTurn{}}.Apply(g, bob))

	controls := ControlsPermanent{Filter: object.FilterCreature, Min: 2}
	assert.False(t, controls.Apply(g, alice))
	g.add(card("kithkin2", "alice", object.ZoneBattlefield, object.TypeCreature))
	assert.True(t, controls.Apply(g, alice))

	assert.True(t, SourceOnBattlefield{}.Apply(g, alice))
	assert.False(t, SourceOnBattlefield{}.Apply(g, Source{ID: "missing"}))

	enough := ValueAtLeast{Value: &PermanentsOnBattlefield{Filter: object.FilterCreature}, Min: 3}
	assert.True(t, enough.Apply(g, alice))
}
