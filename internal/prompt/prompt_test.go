package prompt

import (
	"strings"
	"testing"
)

func TestDetectModeMessageKeywords(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Mode
	}{
		{"plain question", "how deep can I safely go?", ModeGeneral},
		{"certification", "what do I need for my rescue diver cert?", ModeCertification},
		{"trip", "planning a liveaboard in the Maldives", ModeTrip},
		{"uppercase", "IS PADI BETTER THAN SSI?", ModeCertification},
		{"trip beats certification", "which certification do I need for this trip?", ModeTrip},
		{"destination phrasing", "where to dive in November?", ModeTrip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMode(tt.message, nil); got != tt.want {
				t.Errorf("DetectMode(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestDetectModeHistoryFallback(t *testing.T) {
	tests := []struct {
		name    string
		message string
		history []string
		want    Mode
	}{
		{
			"certification in history",
			"what about the swim test?",
			[]string{"I want to become a divemaster", "The divemaster course requires..."},
			ModeCertification,
		},
		{
			"trip in history",
			"what about in January?",
			[]string{"thinking about a trip to Palau", "Palau is great year-round..."},
			ModeTrip,
		},
		{
			"certification beats trip in history",
			"and how long does it take?",
			[]string{"I booked a trip to Cozumel", "Nice choice!", "Can I do the open water course there?", "Yes, many shops offer it..."},
			ModeCertification,
		},
		{
			"only last four entries considered",
			"anything else?",
			[]string{"tell me about the divemaster course", "sure...", "thanks", "welcome", "what fish are these?", "those are wrasse"},
			ModeGeneral,
		},
		{
			"no signal anywhere",
			"thanks!",
			[]string{"how do fish breathe?", "through gills"},
			ModeGeneral,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMode(tt.message, tt.history); got != tt.want {
				t.Errorf("DetectMode(%q, history) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestDetectModePure(t *testing.T) {
	history := []string{"planning a trip", "great"}
	first := DetectMode("when should I book?", history)
	second := DetectMode("when should I book?", history)
	if first != second {
		t.Errorf("DetectMode not deterministic: %q vs %q", first, second)
	}
}

func TestBuildSystemPromptWithoutContext(t *testing.T) {
	got := BuildSystemPrompt(ModeGeneral, nil)
	if !strings.Contains(got, "ReefGuide") {
		t.Error("base prompt missing")
	}
	if strings.Contains(got, "Reference information") {
		t.Error("reference block present without context")
	}
}

func TestBuildSystemPromptWithContext(t *testing.T) {
	chunks := []string{"Chunk about currents.", "Chunk about tides."}
	got := BuildSystemPrompt(ModeTrip, chunks)

	if !strings.Contains(got, "Reference information") {
		t.Error("reference block missing")
	}
	if !strings.Contains(got, "Chunk about currents.\n\n---\n\nChunk about tides.") {
		t.Error("chunks not joined with delimiter")
	}
	idx := strings.Index(got, "dive travel")
	ref := strings.Index(got, "Reference information")
	if idx == -1 || ref < idx {
		t.Error("mode guidance must precede reference block")
	}
}

func TestBuildSystemPromptUnknownMode(t *testing.T) {
	got := BuildSystemPrompt(Mode("weird"), nil)
	want := BuildSystemPrompt(ModeGeneral, nil)
	if got != want {
		t.Error("unknown mode should fall back to general guidance")
	}
}
