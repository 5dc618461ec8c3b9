package rules

import "slices"

// StackItemKind represents the type of object on the stack.
type StackItemKind string

const (
	StackItemKindSpell     StackItemKind = "SPELL"
	StackItemKindActivated StackItemKind = "ACTIVATED"
	StackItemKindTriggered StackItemKind = "TRIGGERED"
)

// StackObject is anything that can wait on the stack.
type StackObject interface {
	ID() string
	Kind() StackItemKind
	SourceID() string
	ControllerID() string
	Description() string
}

// Stack is the LIFO zone of spells and abilities awaiting resolution.
type Stack struct {
	items []StackObject // bottom first
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push places an object on top.
func (s *Stack) Push(obj StackObject) {
	s.items = append(s.items, obj)
}

// Pop removes and returns the top object.
func (s *Stack) Pop() (StackObject, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

// Peek returns the top object without removing it.
func (s *Stack) Peek() (StackObject, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[len(s.items)-1], true
}

// Get finds an object anywhere on the stack.
func (s *Stack) Get(id string) (StackObject, bool) {
	for _, item := range s.items {
		if item.ID() == id {
			return item, true
		}
	}
	return nil, false
}

// Remove takes an object out of the stack wherever it is.
func (s *Stack) Remove(id string) (StackObject, bool) {
	for i, item := range s.items {
		if item.ID() == id {
			s.items = slices.Delete(s.items, i, i+1)
			return item, true
		}
	}
	return nil, false
}

// List returns the stack top first.
func (s *Stack) List() []StackObject {
	out := slices.Clone(s.items)
	slices.Reverse(out)
	return out
}

func (s *Stack) Len() int {
	return len(s.items)
}

func (s *Stack) IsEmpty() bool {
	return len(s.items) == 0
}
