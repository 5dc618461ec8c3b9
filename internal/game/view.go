package game

import (
	"maps"

	"github.com/magefree/mage-engine-go/internal/game/object"
)

// GameView is the game as one viewer may see it. Hidden zones of other
// players show only their size, and face-down permanents of other players
// show only their face-down characteristics.
type GameView struct {
	GameID         string         `json:"game_id"`
	State          State          `json:"state"`
	Turn           int            `json:"turn"`
	Phase          string         `json:"phase"`
	Step           string         `json:"step"`
	ActivePlayerID string         `json:"active_player_id"`
	PriorityPlayer string         `json:"priority_player,omitempty"`
	StackState     string         `json:"stack_state"`
	Winner         string         `json:"winner,omitempty"`
	Players        []PlayerView   `json:"players"`
	Battlefield    []CardView     `json:"battlefield"`
	Stack          []StackView    `json:"stack"`
	Command        []CardView     `json:"command,omitempty"`
	Messages       []string       `json:"messages,omitempty"`
	Pending        *DecisionView  `json:"pending,omitempty"`
	LegalActions   []PlayerAction `json:"legal_actions,omitempty"`
}

// PlayerView is one player's public state. Hand is only filled in for the
// viewer's own hand.
type PlayerView struct {
	PlayerID     string     `json:"player_id"`
	Name         string     `json:"name"`
	Life         int        `json:"life"`
	Poison       int        `json:"poison"`
	LibraryCount int        `json:"library_count"`
	HandCount    int        `json:"hand_count"`
	Hand         []CardView `json:"hand,omitempty"`
	Graveyard    []CardView `json:"graveyard"`
	Exile        []CardView `json:"exile"`
	ManaPool     string     `json:"mana_pool"`
	Lost         bool       `json:"lost"`
	Conceded     bool       `json:"conceded"`
}

type CardView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	ManaCost     string         `json:"mana_cost,omitempty"`
	TypeLine     string         `json:"type_line,omitempty"`
	Color        string         `json:"color,omitempty"`
	PT           string         `json:"pt,omitempty"`
	Abilities    []string       `json:"abilities,omitempty"`
	OwnerID      string         `json:"owner_id"`
	ControllerID string         `json:"controller_id"`
	Tapped       bool           `json:"tapped,omitempty"`
	FaceDown     bool           `json:"face_down,omitempty"`
	Token        bool           `json:"token,omitempty"`
	Damage       int            `json:"damage,omitempty"`
	Counters     map[string]int `json:"counters,omitempty"`
}

type StackView struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Description  string     `json:"description"`
	ControllerID string     `json:"controller_id"`
	Targets      [][]string `json:"targets,omitempty"`
}

// DecisionView describes the decision the game waits for. Details are
// only shown to the deciding player.
type DecisionView struct {
	PlayerID string             `json:"player_id"`
	Kind     string             `json:"kind"`
	Triggers []TriggerOrderView `json:"triggers,omitempty"`
}

type TriggerOrderView struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// View builds the game view for viewerID. An empty viewer is a spectator.
func (g *Game) View(viewerID string) GameView {
	v := GameView{
		GameID:         g.id,
		State:          g.state,
		Turn:           g.turn.TurnNumber(),
		Phase:          g.turn.CurrentPhase().String(),
		Step:           g.turn.CurrentStep().String(),
		ActivePlayerID: g.turn.ActivePlayer(),
		PriorityPlayer: g.priority.Holder(),
		StackState:     g.priority.State().String(),
		Winner:         g.winner,
		Messages:       g.Messages(),
	}
	for _, id := range g.seats {
		v.Players = append(v.Players, g.playerView(g.players[id], viewerID))
	}
	for _, id := range g.battlefield {
		v.Battlefield = append(v.Battlefield, g.cardView(g.cards[id], viewerID))
	}
	for _, so := range g.Stack() {
		v.Stack = append(v.Stack, StackView{
			ID:           so.id,
			Kind:         string(so.kind),
			Description:  so.Description(),
			ControllerID: so.controllerID,
			Targets:      so.Targets(),
		})
	}
	for _, e := range g.emblems {
		s := e.snapshot()
		v.Command = append(v.Command, CardView{ID: e.id, Name: s.Name, Abilities: s.Abilities, OwnerID: e.controllerID, ControllerID: e.controllerID})
	}
	if req := g.triggers.Awaiting(); req != nil {
		d := &DecisionView{PlayerID: req.PlayerID, Kind: string(ActionOrderTriggers)}
		if req.PlayerID == viewerID {
			for _, t := range req.Triggers {
				d.Triggers = append(d.Triggers, TriggerOrderView{ID: t.ID, Description: t.Description})
			}
		}
		v.Pending = d
	}
	if viewerID != "" {
		v.LegalActions = g.LegalActions(viewerID)
	}
	return v
}

func (g *Game) playerView(p *Player, viewerID string) PlayerView {
	pv := PlayerView{
		PlayerID:     p.id,
		Name:         p.name,
		Life:         p.life,
		Poison:       p.poison,
		LibraryCount: len(p.library),
		HandCount:    len(p.hand),
		ManaPool:     p.pool.String(),
		Lost:         p.lost,
		Conceded:     p.conceded,
	}
	if p.id == viewerID {
		for _, id := range p.hand {
			pv.Hand = append(pv.Hand, g.cardView(g.cards[id], viewerID))
		}
	}
	for _, id := range p.graveyard {
		pv.Graveyard = append(pv.Graveyard, g.cardView(g.cards[id], viewerID))
	}
	for _, id := range p.exile {
		pv.Exile = append(pv.Exile, g.cardView(g.cards[id], viewerID))
	}
	return pv
}

func (g *Game) cardView(c *Card, viewerID string) CardView {
	s := g.evaluate(c)
	cv := CardView{
		ID:           c.id,
		OwnerID:      c.ownerID,
		ControllerID: s.ControllerID,
		Tapped:       c.tapped,
		FaceDown:     c.faceDown,
		Token:        c.token,
		Damage:       c.damage,
		Counters:     maps.Clone(s.Counters),
	}
	chars := s.Characteristics
	if c.faceDown && c.zone == object.ZoneBattlefield && s.ControllerID == viewerID {
		// The controller may look at a face-down permanent (708.5).
		chars = c.base
	}
	cv.Name = chars.Name
	cv.ManaCost = chars.ManaCost
	cv.TypeLine = chars.TypeLine()
	cv.Color = chars.Colors.String()
	cv.PT = chars.PT()
	cv.Abilities = chars.Abilities
	return cv
}
