package object

import "strings"

// FilterContext carries the ability source a filter is evaluated for.
type FilterContext struct {
	SourceID     string
	ControllerID string
}

// Predicate tests one property of an object.
type Predicate func(s *Snapshot, ctx FilterContext) bool

// Filter is a named conjunction of predicates, e.g. "sorcery card".
type Filter struct {
	Message    string
	Predicates []Predicate
}

// NewFilter builds a filter from predicates.
func NewFilter(message string, predicates ...Predicate) *Filter {
	return &Filter{Message: message, Predicates: predicates}
}

// Match reports whether s satisfies every predicate. A nil filter matches anything.
func (f *Filter) Match(s *Snapshot, ctx FilterContext) bool {
	if s == nil {
		return false
	}
	if f == nil {
		return true
	}
	for _, p := range f.Predicates {
		if !p(s, ctx) {
			return false
		}
	}
	return true
}

// With returns a copy of the filter with additional predicates.
func (f *Filter) With(message string, predicates ...Predicate) *Filter {
	out := &Filter{Message: message}
	if f != nil {
		out.Predicates = append(out.Predicates, f.Predicates...)
	}
	out.Predicates = append(out.Predicates, predicates...)
	return out
}

func (f *Filter) String() string {
	if f == nil {
		return "any"
	}
	return f.Message
}

func HasType(t CardType) Predicate {
	return func(s *Snapshot, _ FilterContext) bool { return s.HasType(t) }
}

func HasSubtype(sub string) Predicate {
	return func(s *Snapshot, _ FilterContext) bool { return s.HasSubtype(sub) }
}

func HasAbility(name string) Predicate {
	return func(s *Snapshot, _ FilterContext) bool { return s.HasAbility(name) }
}

func Named(name string) Predicate {
	return func(s *Snapshot, _ FilterContext) bool { return strings.EqualFold(s.Name, name) }
}

func HasColor(c Color) Predicate {
	return func(s *Snapshot, _ FilterContext) bool { return s.Colors.Has(c) }
}

func InZone(z Zone) Predicate {
	return func(s *Snapshot, _ FilterContext) bool { return z.Includes(s.Zone) }
}

// ControlledByYou matches objects controlled by the ability's controller.
func ControlledByYou() Predicate {
	return func(s *Snapshot, ctx FilterContext) bool { return s.ControllerID == ctx.ControllerID }
}

// ControlledByOpponent matches objects not controlled by the ability's controller.
func ControlledByOpponent() Predicate {
	return func(s *Snapshot, ctx FilterContext) bool { return s.ControllerID != ctx.ControllerID }
}

// OwnedByOpponent matches objects whose owner is not the ability's controller.
func OwnedByOpponent() Predicate {
	return func(s *Snapshot, ctx FilterContext) bool { return s.OwnerID != ctx.ControllerID }
}

// Another excludes the ability's own source.
func Another() Predicate {
	return func(s *Snapshot, ctx FilterContext) bool { return s.ID != ctx.SourceID }
}

func Not(p Predicate) Predicate {
	return func(s *Snapshot, ctx FilterContext) bool { return !p(s, ctx) }
}

func Or(ps ...Predicate) Predicate {
	return func(s *Snapshot, ctx FilterContext) bool {
		for _, p := range ps {
			if p(s, ctx) {
				return true
			}
		}
		return false
	}
}

// Common filters.
var (
	FilterCreature           = NewFilter("creature", HasType(TypeCreature))
	FilterArtifact           = NewFilter("artifact", HasType(TypeArtifact))
	FilterLand               = NewFilter("land", HasType(TypeLand))
	FilterSorceryCard        = NewFilter("sorcery card", HasType(TypeSorcery))
	FilterInstantCard        = NewFilter("instant card", HasType(TypeInstant))
	FilterControlledCreature = NewFilter("creature you control", HasType(TypeCreature), ControlledByYou())
	FilterAnyPermanent       = NewFilter("permanent")
)
