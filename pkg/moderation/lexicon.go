// Package moderation implements the deterministic lexicon matcher that gates
// detective messages before they reach the response generator. It is a
// denylist, not a security boundary: novel phrasings pass through, which is
// acceptable for a soft in-game moderation layer.
package moderation

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// Severity buckets for matched phrases. Severity drives the offline cooldown
// duration chosen by the character state machine.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Confidence constants per code path. These are fixed by contract, not
// computed from message features.
const (
	ConfidenceAbusive    = 90
	ConfidenceIrrelevant = 85
	ConfidenceClean      = 95
)

// shortPhraseLimit: phrases shorter than this require a word-boundary match,
// so "hell" does not fire inside "hello". Longer phrases are distinctive
// enough to match as plain substrings.
const shortPhraseLimit = 10

// Result is the classification outcome. It mirrors the abuse-check endpoint
// contract so the in-process matcher and the HTTP endpoint are interchangeable.
type Result struct {
	IsAbusive         bool   `json:"isAbusive"`
	IsIrrelevant      bool   `json:"isIrrelevant"`
	Severity          string `json:"severity,omitempty"`
	Confidence        int    `json:"confidence"`
	Reason            string `json:"reason,omitempty"`
	DetectedIntent    string `json:"detectedIntent,omitempty"`
	SuggestedResponse string `json:"suggestedResponse,omitempty"`
}

// phrase is one entry in a curated lexicon table.
type phrase struct {
	pattern  string
	severity string
}

var abusivePhrases = []phrase{
	// High severity: threats and the strongest language.
	{"i will kill you", SeverityHigh},
	{"i'll kill you", SeverityHigh},
	{"you should die", SeverityHigh},
	{"kill yourself", SeverityHigh},
	{"go to hell and die", SeverityHigh},
	{"fucking idiot", SeverityHigh},
	{"piece of shit", SeverityHigh},
	{"worthless scum", SeverityHigh},

	// Medium severity: direct insults and commands.
	{"you are an idiot", SeverityMedium},
	{"you're an idiot", SeverityMedium},
	{"you are stupid", SeverityMedium},
	{"you're stupid", SeverityMedium},
	{"shut up", SeverityMedium},
	{"shut your mouth", SeverityMedium},
	{"idiot", SeverityMedium},
	{"moron", SeverityMedium},
	{"imbecile", SeverityMedium},
	{"you liar", SeverityMedium},
	{"stupid woman", SeverityMedium},
	{"stupid man", SeverityMedium},

	// Low severity: mild profanity that still breaks the period tone.
	{"damn you", SeverityLow},
	{"hell", SeverityLow},
	{"damn", SeverityLow},
	{"bloody fool", SeverityLow},
}

var irrelevantPhrases = []phrase{
	{"favorite color", SeverityLow},
	{"favourite color", SeverityLow},
	{"favorite food", SeverityLow},
	{"favorite movie", SeverityLow},
	{"what's your favorite", SeverityLow},
	{"whats your favorite", SeverityLow},
	{"do you like pizza", SeverityLow},
	{"tell me a joke", SeverityLow},
	{"sing a song", SeverityLow},
	{"internet", SeverityLow},
	{"smartphone", SeverityLow},
	{"computer", SeverityLow},
	{"television", SeverityLow},
	{"video game", SeverityLow},
	{"social media", SeverityLow},
	{"bitcoin", SeverityLow},
	{"are you an ai", SeverityLow},
	{"are you a robot", SeverityLow},
	{"chatgpt", SeverityLow},
	{"language model", SeverityLow},
}

// In-character refusal lines, keyed by severity. Drawn pseudo-randomly; the
// pipeline attributes them to the character before going silent.
var abusiveResponses = map[string][]string{
	SeverityHigh: {
		"I will not stand here and be threatened. This conversation is over.",
		"How dare you. Summon the constable if you must, but I am done speaking with you.",
		"Such venom! I refuse to dignify that with a response. Good day.",
	},
	SeverityMedium: {
		"I beg your pardon! I'll not be spoken to in that manner.",
		"Mind your tongue, detective. I am under no obligation to endure insults.",
		"If civility is beyond you, then so is my cooperation.",
	},
	SeverityLow: {
		"Such language is hardly becoming of an officer of the law.",
		"I must ask you to keep a civil tongue in this house.",
	},
}

var irrelevantResponses = []string{
	"I hardly see what that has to do with the matter at hand, detective.",
	"A murder has been committed and you ask me that? Do focus.",
	"I'm afraid I don't follow. Perhaps we should return to the night in question.",
}

// boundary regexes for short phrases, compiled once at package init.
var shortPhraseRegexes = buildShortPhraseRegexes()

func buildShortPhraseRegexes() map[string]*regexp.Regexp {
	regexes := make(map[string]*regexp.Regexp)
	for _, p := range abusivePhrases {
		addShortPhraseRegex(regexes, p.pattern)
	}
	for _, p := range irrelevantPhrases {
		addShortPhraseRegex(regexes, p.pattern)
	}
	return regexes
}

func addShortPhraseRegex(regexes map[string]*regexp.Regexp, pattern string) {
	if len(pattern) >= shortPhraseLimit {
		return
	}
	if _, ok := regexes[pattern]; ok {
		return
	}
	regexes[pattern] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(pattern) + `\b`)
}

// matches reports whether pattern occurs in the normalized message under the
// asymmetric matching rule.
func matches(normalized, pattern string) bool {
	if re, ok := shortPhraseRegexes[pattern]; ok {
		return re.MatchString(normalized)
	}
	return strings.Contains(normalized, pattern)
}

// Classify runs the message against both lexicon tables. It is a pure
// function over the static tables; the same message always produces the same
// flags and severity (the suggested response line may vary).
func Classify(message string) Result {
	normalized := strings.ToLower(strings.TrimSpace(message))

	for _, p := range abusivePhrases {
		if matches(normalized, p.pattern) {
			return Result{
				IsAbusive:         true,
				Severity:          p.severity,
				Confidence:        ConfidenceAbusive,
				Reason:            fmt.Sprintf("matched abusive phrase %q", p.pattern),
				DetectedIntent:    "abuse",
				SuggestedResponse: pickResponse(abusiveResponses[p.severity]),
			}
		}
	}

	for _, p := range irrelevantPhrases {
		if matches(normalized, p.pattern) {
			return Result{
				IsIrrelevant:      true,
				Severity:          p.severity,
				Confidence:        ConfidenceIrrelevant,
				Reason:            fmt.Sprintf("matched off-topic phrase %q", p.pattern),
				DetectedIntent:    "irrelevant",
				SuggestedResponse: pickResponse(irrelevantResponses),
			}
		}
	}

	return Result{
		Confidence:     ConfidenceClean,
		DetectedIntent: "investigation",
	}
}

func pickResponse(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.Intn(len(pool))]
}
