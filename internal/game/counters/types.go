package counters

// CounterType names a kind of counter.
type CounterType string

const (
	Loyalty CounterType = "loyalty"
	Poison  CounterType = "poison"
	Charge  CounterType = "charge"
	Time    CounterType = "time"
	Age     CounterType = "age"
	Shield  CounterType = "shield"
	Stun    CounterType = "stun"

	P1P1 CounterType = "+1/+1"
	M1M1 CounterType = "-1/-1"
	P1P0 CounterType = "+1/+0"
	P0P1 CounterType = "+0/+1"
	P2P2 CounterType = "+2/+2"
	M1M0 CounterType = "-1/-0"
	M0M1 CounterType = "-0/-1"
)

func (ct CounterType) String() string {
	return string(ct)
}

// Instance creates a counter of this type.
func (ct CounterType) Instance(amount int) *Counter {
	return NewCounter(string(ct), amount)
}

// IsBoost reports whether the counter modifies power and toughness.
func (ct CounterType) IsBoost() bool {
	_, _, ok := ParseBoost(string(ct))
	return ok
}
