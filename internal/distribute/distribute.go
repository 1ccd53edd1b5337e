package distribute

import (
	"errors"
	"strings"
)

// ErrEmptyRoster is returned when distribution is attempted without translators.
var ErrEmptyRoster = errors.New("roster must contain at least one translator")

// ErrDuplicateTranslator is returned when the same translator appears twice in
// a roster, which would skew the cyclic assignment counts.
var ErrDuplicateTranslator = errors.New("roster contains a duplicate translator")

// Placement pairs one fragment with its position and assignee.
type Placement struct {
	SequenceNumber int // 1-based position within the packet
	SourceText     string
	AssignedTo     string
}

// RosterEntry records one translator's slot in the packet roster.
type RosterEntry struct {
	TranslatorID string
	Position     int
}

// Plan is the full output of distributing a fragment sequence over a roster.
type Plan struct {
	Placements []Placement
	Roster     []RosterEntry
}

// Distribute maps each ordered fragment to a translator by cyclic assignment:
// fragment i goes to roster[i mod len(roster)]. The mapping is a pure function
// of fragment order and roster order; it never consults workload or skill.
func Distribute(fragments []string, roster []string) (Plan, error) {
	cleaned := make([]string, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			return Plan{}, ErrDuplicateTranslator
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return Plan{}, ErrEmptyRoster
	}

	plan := Plan{
		Placements: make([]Placement, 0, len(fragments)),
		Roster:     make([]RosterEntry, 0, len(cleaned)),
	}
	for position, id := range cleaned {
		plan.Roster = append(plan.Roster, RosterEntry{TranslatorID: id, Position: position})
	}
	for index, fragment := range fragments {
		plan.Placements = append(plan.Placements, Placement{
			SequenceNumber: index + 1,
			SourceText:     fragment,
			AssignedTo:     cleaned[index%len(cleaned)],
		})
	}
	return plan, nil
}
