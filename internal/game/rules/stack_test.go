package rules

import "testing"

type testStackObject struct {
	id         string
	controller string
	kind       StackItemKind
}

func (o testStackObject) ID() string           { return o.id }
func (o testStackObject) Kind() StackItemKind  { return o.kind }
func (o testStackObject) SourceID() string     { return o.id + "-source" }
func (o testStackObject) ControllerID() string { return o.controller }
func (o testStackObject) Description() string  { return o.id }

func TestStackPushPopIsLIFO(t *testing.T) {
	s := NewStack()
	s.Push(testStackObject{id: "first", controller: "Alice", kind: StackItemKindSpell})
	s.Push(testStackObject{id: "second", controller: "Bob", kind: StackItemKindTriggered})

	top, ok := s.Peek()
	if !ok || top.ID() != "second" {
		t.Fatalf("expected second on top, got %v", top)
	}
	list := s.List()
	if len(list) != 2 || list[0].ID() != "second" || list[1].ID() != "first" {
		t.Fatalf("expected list top first, got %v", list)
	}

	item, ok := s.Pop()
	if !ok || item.ID() != "second" {
		t.Fatalf("expected LIFO order (second), got %v", item)
	}
	item, ok = s.Pop()
	if !ok || item.ID() != "first" {
		t.Fatalf("expected first, got %v", item)
	}
	if _, ok := s.Pop(); ok {
		t.Fatal("expected empty stack")
	}
	if !s.IsEmpty() {
		t.Fatal("expected IsEmpty")
	}
}

func TestStackRemoveFromMiddle(t *testing.T) {
	s := NewStack()
	for _, id := range []string{"a", "b", "c"} {
		s.Push(testStackObject{id: id})
	}

	removed, ok := s.Remove("b")
	if !ok || removed.ID() != "b" {
		t.Fatalf("expected to remove b, got %v", removed)
	}
	if _, ok := s.Get("b"); ok {
		t.Fatal("b still on stack")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", s.Len())
	}
	if _, ok := s.Remove("missing"); ok {
		t.Fatal("removing a missing id should fail")
	}
}
