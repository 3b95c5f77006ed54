package timeline

import (
	"fmt"
	"strings"
)

// BuildContext assembles the prompt fragment describing what the character
// may know and how they should behave at this point in the investigation.
// The fragment is handed to the response generator as system context; the
// timeline model never calls the generator itself.
func BuildContext(characterID string, trust, progress int) string {
	var sb strings.Builder

	phase := CurrentPhase(progress)
	fmt.Fprintf(&sb, "### Investigation Context\nPhase: %s\nTime: %s\nLocation: %s\n",
		phase.Name, phase.TimeWindow, phase.Location)

	constraints, ok := ConstraintsFor(characterID)
	if !ok {
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n### Behavior\nEmotional state: %s\nResponse style: %s\nInformation sharing: %s\n",
		constraints.EmotionalState, constraints.ResponseStyle, constraints.InformationSharing)

	if len(constraints.AvailableInfo) > 0 {
		sb.WriteString("\n### You may discuss\n")
		for _, info := range constraints.AvailableInfo {
			sb.WriteString("- " + info + "\n")
		}
	}

	if len(constraints.ForbiddenTopics) > 0 {
		sb.WriteString("\n### You must never mention\n")
		for _, topic := range constraints.ForbiddenTopics {
			sb.WriteString("- " + topic + "\n")
		}
		for _, key := range constraints.ForbiddenKnowledge {
			sb.WriteString("- " + key + " (you know nothing of this)\n")
		}
	}

	revealable := RevealableEvents(characterID, trust)
	if len(revealable) > 0 {
		fmt.Fprintf(&sb, "\n### What you can reveal (detective trust %d/100)\n", trust)
		for _, ev := range revealable {
			witnessed := ""
			if ev.Knowledge[characterID].Witnessed {
				witnessed = " (you witnessed this)"
			}
			fmt.Fprintf(&sb, "- %s, %s: %s%s\n", ev.Time, ev.Location, ev.Description, witnessed)
		}
	}

	return sb.String()
}
