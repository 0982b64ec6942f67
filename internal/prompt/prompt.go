// Package prompt classifies conversation intent and assembles the
// system prompt for each turn. Classification is a fixed keyword
// matcher, pure in its inputs.
package prompt

import (
	"strings"
)

// Mode is the conversational intent of a turn.
type Mode string

const (
	ModeGeneral       Mode = "general"
	ModeCertification Mode = "certification"
	ModeTrip          Mode = "trip"
)

// historyLookback is how many trailing history entries (two exchanges)
// are inspected when the current message alone matches nothing.
const historyLookback = 4

var certificationKeywords = []string{
	"certification",
	"certified",
	"open water",
	"advanced open water",
	"rescue diver",
	"divemaster",
	"instructor",
	"padi",
	"ssi",
	"naui",
	"course",
	"training",
	"specialty",
	"nitrox cert",
	"dive theory",
	"qualify",
}

var tripKeywords = []string{
	"trip",
	"travel",
	"destination",
	"liveaboard",
	"resort",
	"itinerary",
	"book",
	"season",
	"where to dive",
	"where should i dive",
	"visit",
	"flight",
	"vacation",
	"holiday",
	"island",
	"dive site",
}

// DetectMode classifies the current turn. Trip keywords in the message
// beat certification keywords; if the message matches neither set, the
// last four history entries are inspected as one blob, where
// certification takes precedence over trip. No match yields general.
func DetectMode(message string, history []string) Mode {
	msg := strings.ToLower(message)
	if matchesAny(msg, tripKeywords) {
		return ModeTrip
	}
	if matchesAny(msg, certificationKeywords) {
		return ModeCertification
	}

	start := len(history) - historyLookback
	if start < 0 {
		start = 0
	}
	blob := strings.ToLower(strings.Join(history[start:], "\n"))
	if matchesAny(blob, certificationKeywords) {
		return ModeCertification
	}
	if matchesAny(blob, tripKeywords) {
		return ModeTrip
	}

	return ModeGeneral
}

func matchesAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

const basePrompt = `You are ReefGuide, a knowledgeable and safety-conscious scuba diving assistant.
You help divers of all experience levels with clear, accurate answers.
Never encourage diving beyond a diver's certification or comfort level.
When a question touches decompression, gas planning, or medical fitness,
remind the diver to confirm with their training agency or a dive professional.`

var modeGuidance = map[Mode]string{
	ModeGeneral: `Answer general diving questions conversationally.
Keep explanations practical and grounded in mainstream recreational diving practice.`,
	ModeCertification: `The diver is asking about training and certification.
Explain agency pathways, prerequisites, and skill expectations.
Be explicit about which certification level each activity requires.`,
	ModeTrip: `The diver is planning dive travel.
Cover seasonality, typical conditions, required experience level, and
logistics for the destinations discussed. Suggest alternatives when a
destination exceeds the diver's stated experience.`,
}

// contextDelimiter separates retrieved chunks inside the reference
// block.
const contextDelimiter = "\n\n---\n\n"

// BuildSystemPrompt assembles the system prompt for mode, appending a
// reference block when retrieval produced context.
func BuildSystemPrompt(mode Mode, contextChunks []string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n")

	guidance, ok := modeGuidance[mode]
	if !ok {
		guidance = modeGuidance[ModeGeneral]
	}
	b.WriteString(guidance)

	if len(contextChunks) > 0 {
		b.WriteString("\n\nReference information:\n\n")
		b.WriteString(strings.Join(contextChunks, contextDelimiter))
	}

	return b.String()
}
