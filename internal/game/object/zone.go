package object

// Zone identifies where a game object currently is.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneLibrary
	ZoneHand
	ZoneBattlefield
	ZoneGraveyard
	ZoneStack
	ZoneExile
	ZoneCommand
	// ZoneAll is used by abilities that function in every zone.
	ZoneAll
)

var zoneNames = map[Zone]string{
	ZoneNone:        "none",
	ZoneLibrary:     "library",
	ZoneHand:        "hand",
	ZoneBattlefield: "battlefield",
	ZoneGraveyard:   "graveyard",
	ZoneStack:       "stack",
	ZoneExile:       "exile",
	ZoneCommand:     "command",
	ZoneAll:         "all",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return "unknown"
}

// Hidden reports whether the contents of the zone are private information.
func (z Zone) Hidden() bool {
	return z == ZoneLibrary || z == ZoneHand
}

// Includes reports whether an ability functioning in z functions in other.
func (z Zone) Includes(other Zone) bool {
	return z == ZoneAll || z == other
}
