package game

import (
	"slices"

	"github.com/magefree/mage-engine-go/internal/game/counters"
	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
)

// CardSpec is a card definition: printed characteristics and ability templates.
type CardSpec struct {
	Characteristics object.Characteristics
	Abilities       []Ability
}

// Card is a game object that keeps its id across zone changes. The game owns
// every card; everything else refers to cards by id.
type Card struct {
	id            string
	ownerID       string
	controllerID  string
	zone          object.Zone
	token         bool
	base          object.Characteristics
	abilities     []Ability
	acquired      []Ability // gained through effects, bound to this object
	lastAcquired  []Ability // acquired as the object last left a zone
	tapped        bool
	faceDown      bool
	summoningSick bool
	monstrous     bool
	damage        int
	counters      *counters.Counters
	zoneTimestamp int64
}

func (c *Card) ID() string                   { return c.id }
func (c *Card) OwnerID() string              { return c.ownerID }
func (c *Card) ControllerID() string         { return c.controllerID }
func (c *Card) Zone() object.Zone            { return c.zone }
func (c *Card) IsToken() bool                { return c.token }
func (c *Card) Tapped() bool                 { return c.tapped }
func (c *Card) Damage() int                  { return c.damage }
func (c *Card) Monstrous() bool              { return c.monstrous }
func (c *Card) Counters() map[string]int     { return c.counters.Map() }
func (c *Card) Base() object.Characteristics { return c.base.Clone() }

// Abilities returns the card's ability instances: printed ones first, then
// the ones it acquired, such as the abilities of the object it copies.
func (c *Card) Abilities() []Ability {
	return append(slices.Clone(c.abilities), c.acquired...)
}

func (c *Card) ability(id string) (Ability, bool) {
	for _, list := range [][]Ability{c.abilities, c.acquired} {
		if i := slices.IndexFunc(list, func(a Ability) bool { return a.ID() == id }); i >= 0 {
			return list[i], true
		}
	}
	return nil, false
}

func (c *Card) printed(text string) bool {
	return slices.ContainsFunc(c.abilities, func(a Ability) bool { return a.Text() == text })
}

func (c *Card) spellAbility() *SpellAbility {
	for _, a := range c.abilities {
		if s, ok := a.(*SpellAbility); ok {
			return s
		}
	}
	return nil
}

func (c *Card) kind() object.Kind {
	switch {
	case c.zone == object.ZoneBattlefield && c.token:
		return object.KindToken
	case c.zone == object.ZoneBattlefield:
		return object.KindPermanent
	case c.zone == object.ZoneStack:
		return object.KindStackObject
	}
	return object.KindCard
}

// snapshot returns the object before continuous effects are applied.
func (c *Card) snapshot() *object.Snapshot {
	chars := c.base.Clone()
	if c.faceDown && c.zone == object.ZoneBattlefield {
		// 708.2a: a face-down permanent is a nameless 2/2 creature.
		chars = object.Characteristics{Types: []object.CardType{object.TypeCreature}, Power: 2, Toughness: 2, HasPT: true}
	}
	return &object.Snapshot{
		ID:              c.id,
		Kind:            c.kind(),
		OwnerID:         c.ownerID,
		ControllerID:    c.controllerID,
		Zone:            c.zone,
		Tapped:          c.tapped,
		FaceDown:        c.faceDown,
		SummoningSick:   c.summoningSick,
		Damage:          c.damage,
		Counters:        c.counters.Map(),
		ZoneTimestamp:   c.zoneTimestamp,
		Characteristics: chars,
	}
}

// resetPermanentState clears everything a card forgets when it leaves the battlefield.
func (c *Card) resetPermanentState() {
	c.tapped = false
	c.faceDown = false
	c.summoningSick = false
	c.monstrous = false
	c.damage = 0
	c.counters.Clear()
	c.controllerID = c.ownerID
}

// Emblem is a command zone object whose abilities function for the rest of the game.
type Emblem struct {
	id           string
	name         string
	controllerID string
	abilities    []Ability
	timestamp    int64
}

func (e *Emblem) ID() string           { return e.id }
func (e *Emblem) Name() string         { return e.name }
func (e *Emblem) ControllerID() string { return e.controllerID }

func (e *Emblem) snapshot() *object.Snapshot {
	s := &object.Snapshot{
		ID:            e.id,
		Kind:          object.KindEmblem,
		OwnerID:       e.controllerID,
		ControllerID:  e.controllerID,
		Zone:          object.ZoneCommand,
		ZoneTimestamp: e.timestamp,
	}
	s.Name = e.name
	for _, a := range e.abilities {
		s.AddAbility(a.Text())
	}
	return s
}

// Player is a participant in a game.
type Player struct {
	id            string
	name          string
	life          int
	poison        int
	library       []string // top first
	hand          []string
	graveyard     []string // top last
	exile         []string
	pool          *mana.Pool
	landsPlayed   int
	drewFromEmpty bool
	lost          bool
	left          bool
	conceded      bool
}

func newPlayer(cfg PlayerConfig, life int) *Player {
	name := cfg.Name
	if name == "" {
		name = cfg.ID
	}
	return &Player{id: cfg.ID, name: name, life: life, pool: mana.NewPool()}
}

func (p *Player) ID() string          { return p.id }
func (p *Player) Name() string        { return p.name }
func (p *Player) Life() int           { return p.life }
func (p *Player) Poison() int         { return p.poison }
func (p *Player) Lost() bool          { return p.lost }
func (p *Player) Hand() []string      { return slices.Clone(p.hand) }
func (p *Player) Library() []string   { return slices.Clone(p.library) }
func (p *Player) Graveyard() []string { return slices.Clone(p.graveyard) }
func (p *Player) Exile() []string     { return slices.Clone(p.exile) }
func (p *Player) ManaPool() string    { return p.pool.String() }

// inGame reports whether the player still takes part in the game.
func (p *Player) inGame() bool {
	return !p.lost && !p.left
}

// zoneList returns the player-owned list backing a zone.
func (p *Player) zoneList(zone object.Zone) *[]string {
	switch zone {
	case object.ZoneLibrary:
		return &p.library
	case object.ZoneHand:
		return &p.hand
	case object.ZoneGraveyard:
		return &p.graveyard
	case object.ZoneExile:
		return &p.exile
	}
	return nil
}

func removeID(ids []string, id string) ([]string, bool) {
	i := slices.Index(ids, id)
	if i < 0 {
		return ids, false
	}
	return slices.Delete(ids, i, i+1), true
}
