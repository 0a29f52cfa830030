package politics

import "errors"

// ErrEmptyRoster is returned when a roster has no governors.
var ErrEmptyRoster = errors.New("governor roster is empty")

// DefaultGovernors is the line of succession used when no tuning file
// overrides it.
var DefaultGovernors = []string{
	"Greg Abutt",
	"Dan Patwreck",
	"Rick Perryhaps",
	"Ken Paxtoff",
	"Ted Cruzcontrol",
}

// Roster is the fixed, ordered line of succession for the incumbent faction.
type Roster struct {
	names []string
}

// NewRoster creates a roster from names.
func NewRoster(names []string) (Roster, error) {
	if len(names) == 0 {
		return Roster{}, ErrEmptyRoster
	}
	return Roster{names: append([]string(nil), names...)}, nil
}

// Len returns the number of governors in the roster.
func (r Roster) Len() int { return len(r.names) }

// Name returns the governor at index, wrapping past the end.
func (r Roster) Name(index int) string {
	return r.names[r.Wrap(index)]
}

// Next returns the index after index, wrapping to 0.
func (r Roster) Next(index int) int {
	return r.Wrap(index + 1)
}

// Wrap folds any index into range.
func (r Roster) Wrap(index int) int {
	n := len(r.names)
	return ((index % n) + n) % n
}
