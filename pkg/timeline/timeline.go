// Package timeline holds the static knowledge model for the Ashworth case:
// what happened on the night of the murder, which character knows what, and
// what each character is permitted to reveal at a given trust level and
// investigation phase. Everything here is read-only at runtime; the dynamic
// inputs (trust, progress) arrive as arguments.
package timeline

// Phase is one stage of the investigation, selected by global progress.
// Phases provide narrative framing (location, time of night) for the
// generator; whether they also gate character availability is controlled by
// an AvailabilityPolicy.
type Phase struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	TimeWindow       string   `json:"time_window"`
	Location         string   `json:"location"`
	RequiredProgress int      `json:"required_progress"`
	Characters       []string `json:"characters"` // available in this phase
	Locations        []string `json:"locations"`
}

// Phases in ascending threshold order. CurrentPhase depends on this ordering.
var phases = []Phase{
	{
		ID:               "gathering",
		Name:             "The Gathering",
		TimeWindow:       "8:00 PM",
		Location:         "drawing-room",
		RequiredProgress: 0,
		Characters:       []string{"james-blackwood", "victoria-ashworth"},
		Locations:        []string{"drawing-room", "foyer"},
	},
	{
		ID:               "crime-scene",
		Name:             "The Study Examined",
		TimeWindow:       "9:30 PM",
		Location:         "study",
		RequiredProgress: 10,
		Characters:       []string{"james-blackwood", "victoria-ashworth", "marcus-reed"},
		Locations:        []string{"study", "drawing-room", "foyer"},
	},
	{
		ID:               "hidden-histories",
		Name:             "Hidden Histories",
		TimeWindow:       "10:30 PM",
		Location:         "library",
		RequiredProgress: 25,
		Characters:       []string{"james-blackwood", "victoria-ashworth", "marcus-reed", "lily-chen"},
		Locations:        []string{"library", "study", "drawing-room"},
	},
	{
		ID:               "alibis-unravel",
		Name:             "Alibis Unravel",
		TimeWindow:       "11:30 PM",
		Location:         "conservatory",
		RequiredProgress: 50,
		Characters:       []string{"james-blackwood", "victoria-ashworth", "marcus-reed", "lily-chen", "thomas-grey"},
		Locations:        []string{"conservatory", "library", "study", "grounds"},
	},
	{
		ID:               "final-accusation",
		Name:             "The Final Accusation",
		TimeWindow:       "midnight",
		Location:         "grand-hall",
		RequiredProgress: 75,
		Characters:       []string{"james-blackwood", "victoria-ashworth", "marcus-reed", "lily-chen", "thomas-grey"},
		Locations:        []string{"grand-hall", "conservatory", "library", "study", "grounds"},
	},
}

// CurrentPhase returns the phase whose threshold is the greatest value not
// exceeding progress. Progress below zero maps to the first phase.
func CurrentPhase(progress int) Phase {
	current := phases[0]
	for _, p := range phases {
		if p.RequiredProgress <= progress {
			current = p
		}
	}
	return current
}

// AllPhases returns a copy of the phase table.
func AllPhases() []Phase {
	out := make([]Phase, len(phases))
	copy(out, phases)
	return out
}

// AvailabilityPolicy controls whether the phase roster gates character
// selection. Whether gating should be enforced is still an open product
// question, so both behaviors are kept behind this switch.
type AvailabilityPolicy string

const (
	// PolicyAll marks every character available regardless of phase
	// (the default).
	PolicyAll AvailabilityPolicy = "all"
	// PolicyPhase restricts availability to the current phase's roster.
	PolicyPhase AvailabilityPolicy = "phase"
)

// AvailableCharacters reports which characters may be selected at the given
// progress under the configured policy.
func AvailableCharacters(progress int, policy AvailabilityPolicy, roster []string) []string {
	if policy != PolicyPhase {
		out := make([]string, len(roster))
		copy(out, roster)
		return out
	}
	phase := CurrentPhase(progress)
	out := make([]string, len(phase.Characters))
	copy(out, phase.Characters)
	return out
}
