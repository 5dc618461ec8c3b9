package object

import "maps"

// Snapshot is a derived, read-only view of a game object: the result of
// applying continuous effects, or the last known information of an object
// that has changed zones.
type Snapshot struct {
	ID            string
	Kind          Kind
	OwnerID       string
	ControllerID  string
	Zone          Zone
	Tapped        bool
	FaceDown      bool
	SummoningSick bool
	Damage        int
	Counters      map[string]int
	Restrictions  Restriction
	ZoneTimestamp int64

	Characteristics
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Characteristics = s.Characteristics.Clone()
	out.Counters = maps.Clone(s.Counters)
	return &out
}

// Equal compares two snapshots value by value.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID &&
		s.Kind == other.Kind &&
		s.OwnerID == other.OwnerID &&
		s.ControllerID == other.ControllerID &&
		s.Zone == other.Zone &&
		s.Tapped == other.Tapped &&
		s.FaceDown == other.FaceDown &&
		s.SummoningSick == other.SummoningSick &&
		s.Damage == other.Damage &&
		maps.Equal(s.Counters, other.Counters) &&
		s.Restrictions == other.Restrictions &&
		s.ZoneTimestamp == other.ZoneTimestamp &&
		s.Characteristics.Equal(other.Characteristics)
}

// IsCreature reports whether the object is a creature.
func (s *Snapshot) IsCreature() bool {
	return s.HasType(TypeCreature)
}

// CounterCount returns the number of counters with the given name.
func (s *Snapshot) CounterCount(name string) int {
	return s.Counters[name]
}
