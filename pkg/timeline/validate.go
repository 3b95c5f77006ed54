package timeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sensitiveKeywords are flagged whenever a response uses them before the
// detective has earned the character's full trust.
var sensitiveKeywords = []string{"secret", "confidential", "private", "hidden"}

// redactionPlaceholder replaces forbidden terms during the best-effort
// redaction pass.
const redactionPlaceholder = "certain matters"

// ValidationResult reports timeline violations in a generated response.
// Violations are advisory: the pipeline redacts rather than rejecting, since
// there is no regeneration loop and a hard reject would break the
// conversation.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Violations  []string `json:"violations,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	// Terms are the matched phrases, for the redaction pass.
	Terms []string `json:"-"`
}

// Validate scans a generated response for content the character is not
// allowed to produce: forbidden topics, knowledge they do not possess, and
// sensitive-topic keywords when trust is below the character's ceiling.
func Validate(characterID, response string, trust int) ValidationResult {
	result := ValidationResult{IsValid: true}

	constraints, ok := ConstraintsFor(characterID)
	if !ok {
		return result
	}

	lower := strings.ToLower(response)

	for _, topic := range constraints.ForbiddenTopics {
		if strings.Contains(lower, strings.ToLower(topic)) {
			result.IsValid = false
			result.Violations = append(result.Violations, fmt.Sprintf("mentions forbidden topic %q", topic))
			result.Suggestions = append(result.Suggestions, fmt.Sprintf("avoid discussing %s at this stage", topic))
			result.Terms = append(result.Terms, topic)
		}
	}

	for _, key := range constraints.ForbiddenKnowledge {
		if strings.Contains(lower, strings.ToLower(key)) {
			result.IsValid = false
			result.Violations = append(result.Violations, fmt.Sprintf("reveals knowledge of %q the character does not have", key))
			result.Suggestions = append(result.Suggestions, fmt.Sprintf("the character knows nothing about %s", key))
			result.Terms = append(result.Terms, key)
		}
	}

	if trust < constraints.MaxTrustLevel {
		for _, keyword := range sensitiveKeywords {
			if strings.Contains(lower, keyword) {
				result.IsValid = false
				result.Violations = append(result.Violations, fmt.Sprintf("uses sensitive keyword %q below trust ceiling", keyword))
				result.Suggestions = append(result.Suggestions, "defer sensitive disclosures until trust is earned")
				result.Terms = append(result.Terms, keyword)
			}
		}
	}

	return result
}

// Redact replaces each offending term with a neutral placeholder, preserving
// the case pattern of the original text. Best-effort: the sentence may read
// awkwardly, but the forbidden content is gone and the conversation
// continues.
func Redact(response string, terms []string) string {
	result := response
	for _, term := range terms {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			return preserveCase(match, redactionPlaceholder)
		})
	}
	return result
}

// preserveCase applies the case pattern of the original text to the
// replacement.
func preserveCase(original, replacement string) string {
	if len(original) == 0 {
		return replacement
	}

	if strings.ToUpper(original) == original && strings.ToLower(original) != original {
		return strings.ToUpper(replacement)
	}

	titleCaser := cases.Title(language.English)
	if r := []rune(original); unicode.IsUpper(r[0]) {
		return titleCaser.String(replacement)
	}

	return replacement
}
