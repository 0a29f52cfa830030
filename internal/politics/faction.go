// Package politics holds the factions of Tegzit and the line of succession.
package politics

import "fmt"

// Faction is one of the political camps competing for donations.
type Faction uint8

const (
	Orange Faction = iota // The party holding the governor's mansion at start
	Purple                // The opposition
)

// Factions lists every faction in display order.
var Factions = []Faction{Orange, Purple}

// String returns the faction's display name.
func (f Faction) String() string {
	switch f {
	case Orange:
		return "Orange"
	case Purple:
		return "Purple"
	default:
		return fmt.Sprintf("Faction(%d)", uint8(f))
	}
}

// Valid reports whether f is a known faction.
func (f Faction) Valid() bool {
	return f <= Purple
}

// Opponent returns the faction opposing f.
func (f Faction) Opponent() Faction {
	if f == Orange {
		return Purple
	}
	return Orange
}

// ParseFaction converts a display name back to a Faction.
func ParseFaction(s string) (Faction, error) {
	for _, f := range Factions {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown faction %q", s)
}
