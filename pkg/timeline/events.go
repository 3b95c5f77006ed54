package timeline

// CharacterKnowledge gates one character's relationship to one event.
type CharacterKnowledge struct {
	KnowsAbout    bool `json:"knows_about"`
	Witnessed     bool `json:"witnessed"`
	CanReveal     bool `json:"can_reveal"`
	TrustRequired int  `json:"trust_required"`
}

// Event is one static fact about the night Lord Ashworth died.
type Event struct {
	ID           string                        `json:"id"`
	Time         string                        `json:"time"`
	Location     string                        `json:"location"`
	Participants []string                      `json:"participants"`
	Description  string                        `json:"description"`
	EvidenceTags []string                      `json:"evidence_tags,omitempty"`
	SecretTags   []string                      `json:"secret_tags,omitempty"`
	Knowledge    map[string]CharacterKnowledge `json:"knowledge"`
}

var events = []Event{
	{
		ID:           "dinner-toast",
		Time:         "7:30 PM",
		Location:     "dining-room",
		Participants: []string{"james-blackwood", "victoria-ashworth", "marcus-reed", "lily-chen"},
		Description:  "Lord Ashworth raised a toast announcing he would revise his will in the morning.",
		EvidenceTags: []string{"will", "motive"},
		Knowledge: map[string]CharacterKnowledge{
			"james-blackwood":   {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 10},
			"victoria-ashworth": {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 20},
			"marcus-reed":       {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 10},
			"lily-chen":         {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 30},
			"thomas-grey":       {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 40},
		},
	},
	{
		ID:           "study-argument",
		Time:         "8:45 PM",
		Location:     "study",
		Participants: []string{"james-blackwood"},
		Description:  "Raised voices were heard from the study: Lord Ashworth accusing someone of betrayal over the ledgers.",
		EvidenceTags: []string{"argument", "ledgers"},
		SecretTags:   []string{"embezzlement"},
		Knowledge: map[string]CharacterKnowledge{
			"james-blackwood":   {KnowsAbout: true, Witnessed: true, CanReveal: false, TrustRequired: 80},
			"victoria-ashworth": {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 50},
			"marcus-reed":       {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 40},
			"lily-chen":         {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 60},
			"thomas-grey":       {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
		},
	},
	{
		ID:           "conservatory-meeting",
		Time:         "9:10 PM",
		Location:     "conservatory",
		Participants: []string{"victoria-ashworth", "thomas-grey"},
		Description:  "Lady Ashworth slipped away to the conservatory and spoke in whispers with the groundskeeper.",
		SecretTags:   []string{"affair"},
		Knowledge: map[string]CharacterKnowledge{
			"james-blackwood":   {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
			"victoria-ashworth": {KnowsAbout: true, Witnessed: true, CanReveal: false, TrustRequired: 85},
			"marcus-reed":       {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 70},
			"lily-chen":         {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
			"thomas-grey":       {KnowsAbout: true, Witnessed: true, CanReveal: false, TrustRequired: 85},
		},
	},
	{
		ID:           "medicine-cabinet",
		Time:         "9:20 PM",
		Location:     "pantry",
		Participants: []string{"marcus-reed"},
		Description:  "Dr. Reed was seen leaving the pantry where Lord Ashworth's evening tonic was prepared.",
		EvidenceTags: []string{"tonic", "poison"},
		SecretTags:   []string{"morphine"},
		Knowledge: map[string]CharacterKnowledge{
			"james-blackwood":   {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
			"victoria-ashworth": {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
			"marcus-reed":       {KnowsAbout: true, Witnessed: true, CanReveal: false, TrustRequired: 90},
			"lily-chen":         {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 65},
			"thomas-grey":       {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
		},
	},
	{
		ID:           "lights-out",
		Time:         "9:40 PM",
		Location:     "study",
		Participants: []string{},
		Description:  "The study lamp went dark. A single cry was heard, then silence.",
		EvidenceTags: []string{"time-of-death"},
		Knowledge: map[string]CharacterKnowledge{
			"james-blackwood":   {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 10},
			"victoria-ashworth": {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 10},
			"marcus-reed":       {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 10},
			"lily-chen":         {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 10},
			"thomas-grey":       {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 25},
		},
	},
	{
		ID:           "body-discovered",
		Time:         "9:55 PM",
		Location:     "study",
		Participants: []string{"lily-chen"},
		Description:  "Miss Chen found Lord Ashworth slumped over his desk, the study door locked from the inside.",
		EvidenceTags: []string{"locked-door", "desk"},
		Knowledge: map[string]CharacterKnowledge{
			"james-blackwood":   {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 10},
			"victoria-ashworth": {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 10},
			"marcus-reed":       {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 10},
			"lily-chen":         {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 15},
			"thomas-grey":       {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 20},
		},
	},
	{
		ID:           "burned-papers",
		Time:         "10:15 PM",
		Location:     "library",
		Participants: []string{"james-blackwood"},
		Description:  "Fresh ashes in the library fireplace held fragments of ledger paper.",
		EvidenceTags: []string{"ledgers", "ashes"},
		SecretTags:   []string{"embezzlement"},
		Knowledge: map[string]CharacterKnowledge{
			"james-blackwood":   {KnowsAbout: true, Witnessed: true, CanReveal: false, TrustRequired: 90},
			"victoria-ashworth": {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
			"marcus-reed":       {KnowsAbout: false, Witnessed: false, CanReveal: false, TrustRequired: 100},
			"lily-chen":         {KnowsAbout: true, Witnessed: false, CanReveal: true, TrustRequired: 55},
			"thomas-grey":       {KnowsAbout: true, Witnessed: true, CanReveal: true, TrustRequired: 60},
		},
	},
}

// Constraints are the per-character knowledge and behavior limits consulted
// when building prompt context and validating generator output.
type Constraints struct {
	// ForbiddenTopics must never surface in this character's responses,
	// regardless of trust.
	ForbiddenTopics []string `json:"forbidden_topics"`
	// ForbiddenKnowledge are facts the character does not possess; mentioning
	// them would break the timeline.
	ForbiddenKnowledge []string `json:"forbidden_knowledge"`
	// AvailableInfo is the whitelist of subjects the character may discuss
	// freely.
	AvailableInfo []string `json:"available_info"`
	MaxTrustLevel int      `json:"max_trust_level"`

	EmotionalState     string `json:"emotional_state"`
	ResponseStyle      string `json:"response_style"`
	InformationSharing string `json:"information_sharing"`
}

var characterConstraints = map[string]Constraints{
	"james-blackwood": {
		ForbiddenTopics:    []string{"embezzlement", "forged ledger", "offshore accounts"},
		ForbiddenKnowledge: []string{"conservatory meeting", "morphine"},
		AvailableInfo:      []string{"the dinner toast", "the business partnership", "the study argument being heard", "the locked door"},
		MaxTrustLevel:      85,
		EmotionalState:     "defensive",
		ResponseStyle:      "clipped, formal, quick to change the subject",
		InformationSharing: "volunteers nothing; answers only what is asked",
	},
	"victoria-ashworth": {
		ForbiddenTopics:    []string{"the affair", "divorce papers"},
		ForbiddenKnowledge: []string{"morphine", "burned ledger papers"},
		AvailableInfo:      []string{"the dinner toast", "her marriage", "household routines", "the cry at 9:40"},
		MaxTrustLevel:      90,
		EmotionalState:     "vulnerable",
		ResponseStyle:      "composed grief, careful wording, long pauses",
		InformationSharing: "shares freely about others, deflects about herself",
	},
	"marcus-reed": {
		ForbiddenTopics:    []string{"morphine", "falsified death certificate"},
		ForbiddenKnowledge: []string{"burned ledger papers"},
		AvailableInfo:      []string{"the victim's health", "the evening tonic routine", "the dinner toast", "the household's moods"},
		MaxTrustLevel:      80,
		EmotionalState:     "neutral",
		ResponseStyle:      "clinical, precise, lectures when nervous",
		InformationSharing: "offers medical detail readily, personal detail never",
	},
	"lily-chen": {
		ForbiddenTopics:    []string{"the second set of books", "her forged references"},
		ForbiddenKnowledge: []string{"conservatory meeting"},
		AvailableInfo:      []string{"finding the body", "the locked study door", "correspondence she typed", "the argument she overheard"},
		MaxTrustLevel:      95,
		EmotionalState:     "neutral",
		ResponseStyle:      "observant, exact about times and details",
		InformationSharing: "cooperative, almost eager to be useful",
	},
	"thomas-grey": {
		ForbiddenTopics:    []string{"the affair", "poaching arrests"},
		ForbiddenKnowledge: []string{"morphine", "burned ledger papers"},
		AvailableInfo:      []string{"the grounds", "who came and went", "the study window", "the cry he heard"},
		MaxTrustLevel:      75,
		EmotionalState:     "defensive",
		ResponseStyle:      "short sentences, country idiom, distrustful of authority",
		InformationSharing: "answers slowly, says less than he knows",
	},
}

// Roster returns the character IDs with timeline constraints, in a stable
// order.
func Roster() []string {
	return []string{
		"james-blackwood",
		"victoria-ashworth",
		"marcus-reed",
		"lily-chen",
		"thomas-grey",
	}
}

// ConstraintsFor returns the static constraints for a character.
func ConstraintsFor(characterID string) (Constraints, bool) {
	c, ok := characterConstraints[characterID]
	return c, ok
}

// AllEvents returns a copy of the event table.
func AllEvents() []Event {
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// RevealableEvents returns the events a character can reveal at the given
// trust level.
func RevealableEvents(characterID string, trust int) []Event {
	var out []Event
	for _, ev := range events {
		k, ok := ev.Knowledge[characterID]
		if !ok {
			continue
		}
		if k.KnowsAbout && k.CanReveal && trust >= k.TrustRequired {
			out = append(out, ev)
		}
	}
	return out
}
