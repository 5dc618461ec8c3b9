package game

import (
	"slices"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// StackObject is a spell or an activated or triggered ability waiting on the
// stack. A spell's id is the id of its card.
type StackObject struct {
	id           string
	kind         rules.StackItemKind
	sourceID     string
	controllerID string
	ability      resolvable
	targets      [][]string
	x            int
	// event is the event that triggered a triggered ability.
	event *rules.Event
	// source is the last known information of the source when the object
	// was put on the stack.
	source *object.Snapshot
}

func (s *StackObject) ID() string                { return s.id }
func (s *StackObject) Kind() rules.StackItemKind { return s.kind }
func (s *StackObject) SourceID() string          { return s.sourceID }
func (s *StackObject) ControllerID() string      { return s.controllerID }
func (s *StackObject) X() int                    { return s.x }
func (s *StackObject) Ability() Ability          { return s.ability }

// Targets returns the announced targets, one group per requirement.
func (s *StackObject) Targets() [][]string {
	out := make([][]string, len(s.targets))
	for i, group := range s.targets {
		out[i] = slices.Clone(group)
	}
	return out
}

func (s *StackObject) Description() string {
	name := ""
	if s.source != nil {
		name = s.source.Name
	}
	if s.kind == rules.StackItemKindSpell {
		return name
	}
	return name + ": " + s.ability.Text()
}

func (s *StackObject) valueSource() values.Source {
	return values.Source{ID: s.sourceID, ControllerID: s.controllerID}
}

// snapshot describes an ability on the stack. Spells are described by their card.
func (s *StackObject) snapshot() *object.Snapshot {
	snap := &object.Snapshot{
		ID:           s.id,
		Kind:         object.KindStackObject,
		OwnerID:      s.controllerID,
		ControllerID: s.controllerID,
		Zone:         object.ZoneStack,
	}
	snap.Name = s.Description()
	return snap
}
