package chunk

import (
	"strings"
	"testing"
)

func testOptions() Options {
	return Options{MinTokens: 10, TargetTokens: 60, MaxTokens: 80}
}

// para builds a paragraph of n single-token words.
func para(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "reef"
	}
	return strings.Join(words, " ")
}

func TestSplitEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"whitespace", "  \n\n\t "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.doc, "guide.md", nil, DefaultOptions())
			if len(got) != 0 {
				t.Errorf("Split() returned %d chunks, want 0", len(got))
			}
		})
	}
}

func TestSplitWholeSectionFits(t *testing.T) {
	doc := "## Night Diving\n\n" + para(30)

	chunks := Split(doc, "night.md", nil, testOptions())
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "## Night Diving") {
		t.Errorf("chunk missing header prefix: %q", chunks[0].Text[:40])
	}
	if chunks[0].Metadata.SectionHeader != "## Night Diving" {
		t.Errorf("SectionHeader = %q", chunks[0].Metadata.SectionHeader)
	}
}

func TestSplitOversizedSectionPacksParagraphs(t *testing.T) {
	doc := "## Wreck Diving\n\n" + para(50) + "\n\n" + para(50) + "\n\n" + para(50)

	chunks := Split(doc, "wreck.md", nil, testOptions())
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want >= 2", len(chunks))
	}
	for i, c := range chunks {
		if !strings.HasPrefix(c.Text, "## Wreck Diving") {
			t.Errorf("chunk %d missing header prefix", i)
		}
	}
}

func TestSplitSequentialIndices(t *testing.T) {
	doc := "Intro text before any header.\n\n" +
		"## First\n\n" + para(50) + "\n\n" + para(50) + "\n\n" +
		"## Second\n\n" + para(20)

	chunks := Split(doc, "doc.md", nil, testOptions())
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want >= 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d has ChunkIndex %d", i, c.Metadata.ChunkIndex)
		}
	}
	if chunks[0].Metadata.SectionHeader != "" {
		t.Errorf("preamble chunk has header %q, want empty", chunks[0].Metadata.SectionHeader)
	}
}

func TestSplitTwoSectionDocument(t *testing.T) {
	doc := "## A\n\nfoo bar baz\n\n## B\n\nqux quux"
	opts := Options{MinTokens: 1, TargetTokens: 8, MaxTokens: 8}

	chunks := Split(doc, "two.md", nil, opts)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Metadata.ChunkIndex != 0 || chunks[1].Metadata.ChunkIndex != 1 {
		t.Errorf("indices = %d, %d", chunks[0].Metadata.ChunkIndex, chunks[1].Metadata.ChunkIndex)
	}
	if !strings.HasPrefix(chunks[0].Text, "## A") || !strings.HasPrefix(chunks[1].Text, "## B") {
		t.Errorf("chunks missing their own headers: %q, %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestSplitDeterministic(t *testing.T) {
	doc := "## A\n\n" + para(45) + "\n\n" + para(45) + "\n\n## B\n\n" + para(25)

	first := Split(doc, "doc.md", nil, testOptions())
	second := Split(doc, "doc.md", nil, testOptions())
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d text differs between runs", i)
		}
	}
}

func TestSplitCoversAllParagraphs(t *testing.T) {
	paras := []string{para(40), para(40), para(40), para(40)}
	doc := "## Deep\n\n" + strings.Join(paras, "\n\n")

	chunks := Split(doc, "deep.md", nil, testOptions())
	joined := ""
	for _, c := range chunks {
		joined += c.Text + "\n"
	}
	total := 0
	for _, c := range chunks {
		total += EstimateTokens(strings.TrimPrefix(c.Text, "## Deep\n\n"))
	}
	want := 0
	for _, p := range paras {
		want += EstimateTokens(p)
	}
	if total < want {
		t.Errorf("packed chunks cover %d tokens, source has %d", total, want)
	}
	if joined == "" {
		t.Fatal("no output")
	}
}

func TestSplitOversizedParagraphEmittedWhole(t *testing.T) {
	big := para(200)
	doc := "## Currents\n\n" + big + "\n\n" + para(30)

	chunks := Split(doc, "currents.md", nil, testOptions())
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, big) {
			found = true
			if EstimateTokens(c.Text) <= testOptions().MaxTokens {
				t.Error("oversized paragraph chunk unexpectedly under max")
			}
		}
	}
	if !found {
		t.Error("oversized paragraph was not emitted intact")
	}
}

func TestSplitMinTokensOnlyChunkKept(t *testing.T) {
	// Section too big to keep whole, but every packed piece is tiny.
	opts := Options{MinTokens: 100, TargetTokens: 5, MaxTokens: 8}
	doc := "## Tiny\n\n" + para(4) + "\n\n" + para(4)

	chunks := Split(doc, "tiny.md", nil, opts)
	if len(chunks) == 0 {
		t.Fatal("section lost entirely to MinTokens filter")
	}
}

func TestSplitSubSectionHeaders(t *testing.T) {
	doc := "## Gear\n\n" + para(10) + "\n\n### Regulators\n\n" + para(10)

	chunks := Split(doc, "gear.md", nil, testOptions())
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[1].Metadata.SectionHeader != "### Regulators" {
		t.Errorf("SectionHeader = %q", chunks[1].Metadata.SectionHeader)
	}
}

func TestMetadataMap(t *testing.T) {
	m := Metadata{
		ContentPath:   "sites/blue-hole.md",
		ChunkIndex:    3,
		SectionHeader: "## Depth",
		Extra:         map[string]any{"docType": "site_guide", "chunkIndex": 99},
	}
	got := m.Map()
	if got["contentPath"] != "sites/blue-hole.md" {
		t.Errorf("contentPath = %v", got["contentPath"])
	}
	if got["chunkIndex"] != 3 {
		t.Errorf("chunkIndex = %v, positional field must win over Extra", got["chunkIndex"])
	}
	if got["docType"] != "site_guide" {
		t.Errorf("docType = %v", got["docType"])
	}
	if got["sectionHeader"] != "## Depth" {
		t.Errorf("sectionHeader = %v", got["sectionHeader"])
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single short word", "reef", 1},
		{"short words", "go dive now", 3},
		{"long word splits", "decompression", 4},
		{"mixed whitespace", "a\tb\nc", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
