package prompts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/state"
)

// embed encodes untrusted text as a JSON string literal. json.Marshal
// escapes <, > and & so the text cannot close the surrounding tag.
func embed(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// GuardRailPrompt builds the input gate prompt. The verdict's meaning is set
// by the scenario's guard-rail polarity, not by this prompt.
func GuardRailPrompt(sc *scenario.Scenario, userInput string) string {
	return fmt.Sprintf(GuardRailTemplate, sc.GuardRail.Question, sc.GuardRail.Context, embed(userInput))
}

// ClassificationPrompt builds the prompt classifying the answer to the beat
// at the given 1-indexed turn.
func ClassificationPrompt(sc *scenario.Scenario, turnIndex int, userInput string) string {
	var labels strings.Builder
	for _, l := range sc.Taxonomy.Labels {
		labels.WriteString("- ")
		if l.Icon != "" {
			labels.WriteString(l.Icon + " ")
		}
		labels.WriteString(l.Name + ": " + l.Description + "\n")
	}

	var examples strings.Builder
	if len(sc.Taxonomy.Examples) > 0 {
		examples.WriteString("\nExamples:\n")
		for _, ex := range sc.Taxonomy.Examples {
			fmt.Fprintf(&examples, "- %s -> {\"classification\": %q}\n", embed(ex.Input), ex.Label)
		}
	}

	axis := sc.Taxonomy.Axis
	if axis == "" {
		axis = "the user's behavioral approach"
	}

	question := ""
	if b := sc.Beat(turnIndex); b != nil {
		question = b.Question
	}

	return fmt.Sprintf(ClassificationTemplate, axis, labels.String(), examples.String(), question, embed(userInput))
}

// TruncateStory keeps the trailing limit runes of story. A non-positive
// limit disables truncation.
func TruncateStory(story string, limit int) string {
	if limit <= 0 {
		return story
	}
	runes := []rune(story)
	if len(runes) <= limit {
		return story
	}
	return string(runes[len(runes)-limit:])
}

// ConclusionPrompt builds the two-paragraph ending prompt from the user's
// action summaries.
func ConclusionPrompt(sc *scenario.Scenario, st *state.SessionState) string {
	var actions strings.Builder
	for i, a := range st.UserActions {
		fmt.Fprintf(&actions, "%d. %s\n", i+1, embed(a))
	}
	return fmt.Sprintf(ConclusionTemplate, sc.Title, actions.String())
}

// DebriefPrompt builds the behavioral debrief prompt from the user's raw
// responses and their classifications.
func DebriefPrompt(sc *scenario.Scenario, st *state.SessionState) string {
	var turns strings.Builder
	for i := 0; i < sc.TurnCount(); i++ {
		resp, label := "No response", scenario.UnknownLabel
		if i < len(st.UserResponses) {
			resp = st.UserResponses[i]
		}
		if i < len(st.UserPath) {
			label = st.UserPath[i]
		}
		fmt.Fprintf(&turns, "Turn %d: %s -> %s\n", i+1, embed(resp), label)
	}

	context := sc.DebriefContext
	if context == "" {
		context = sc.Description
	}
	axis := sc.Taxonomy.Axis
	if axis == "" {
		axis = "their behavioral approach"
	}
	return fmt.Sprintf(DebriefTemplate, context, axis, turns.String())
}

var (
	paragraphMarker = regexp.MustCompile(`(?i)PARAGRAPH\s*([12])\s*:`)
	blankLine       = regexp.MustCompile(`\n\s*\n`)
)

// ParseConclusion splits model output into paragraphs. It understands the
// PARAGRAPH1:/PARAGRAPH2: format and falls back to blank-line separation.
func ParseConclusion(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if locs := paragraphMarker.FindAllStringIndex(text, -1); len(locs) > 0 {
		var out []string
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			if p := cleanParagraph(text[loc[1]:end]); p != "" {
				out = append(out, p)
			}
		}
		// markers with nothing after them are an empty answer, not prose
		return out
	}

	var out []string
	for _, chunk := range blankLine.Split(text, -1) {
		if p := cleanParagraph(chunk); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanParagraph(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "[]")
	return strings.Join(strings.Fields(s), " ")
}
