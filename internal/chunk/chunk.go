// Package chunk splits markdown documents into retrieval-sized pieces.
//
// The splitter is section-first: documents are divided at ## and ###
// headers, sections that fit the token budget become a single chunk,
// and oversized sections are packed paragraph by paragraph. Packed
// chunks carry their section header as a prefix so each chunk stays
// meaningful in isolation.
package chunk

import (
	"strings"
)

// Options controls chunk sizing. All values are token estimates, not
// exact model tokens.
type Options struct {
	// MinTokens drops fragments smaller than this, unless the fragment
	// is the only chunk produced for its section.
	MinTokens int
	// TargetTokens is the preferred chunk size when packing paragraphs.
	TargetTokens int
	// MaxTokens is the hard ceiling for keeping a section whole. A
	// single paragraph over this limit is still emitted as one chunk.
	MaxTokens int
}

// DefaultOptions returns the sizing used for dive-guide content.
func DefaultOptions() Options {
	return Options{
		MinTokens:    100,
		TargetTokens: 650,
		MaxTokens:    800,
	}
}

// Metadata describes where a chunk came from within its document.
type Metadata struct {
	ContentPath   string
	ChunkIndex    int
	SectionHeader string
	// Extra holds document-level fields (docType, destination, tags)
	// propagated from frontmatter during ingestion.
	Extra map[string]any
}

// Map flattens metadata into the JSONB shape stored alongside the
// embedding. Extra fields are copied first so the positional fields
// always win on key collision.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["contentPath"] = m.ContentPath
	out["chunkIndex"] = m.ChunkIndex
	if m.SectionHeader != "" {
		out["sectionHeader"] = m.SectionHeader
	}
	return out
}

// Chunk is one retrieval unit of a document.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// section is an intermediate split of the document at header lines.
type section struct {
	header string
	body   string
}

// Split divides a markdown document into chunks using opts. The
// returned chunks have sequential ChunkIndex values across the whole
// document, regardless of which section produced them. Empty or
// whitespace-only input yields no chunks.
func Split(doc, contentPath string, extra map[string]any, opts Options) []Chunk {
	if strings.TrimSpace(doc) == "" {
		return nil
	}

	var chunks []Chunk
	index := 0
	emit := func(text, header string) {
		chunks = append(chunks, Chunk{
			Text: text,
			Metadata: Metadata{
				ContentPath:   contentPath,
				ChunkIndex:    index,
				SectionHeader: header,
				Extra:         extra,
			},
		})
		index++
	}

	for _, sec := range splitSections(doc) {
		body := strings.TrimSpace(sec.body)
		if body == "" && sec.header == "" {
			continue
		}

		whole := joinHeader(sec.header, body)
		if EstimateTokens(whole) <= opts.MaxTokens {
			if whole != "" {
				emit(whole, sec.header)
			}
			continue
		}

		pieces := packParagraphs(sec.header, body, opts)
		for _, p := range pieces {
			emit(p, sec.header)
		}
	}

	return chunks
}

// splitSections cuts the document at ## and ### header lines. Text
// before the first header becomes a section with an empty header.
// Deeper headers (####) stay inside their parent section.
func splitSections(doc string) []section {
	lines := strings.Split(doc, "\n")

	var sections []section
	var current section
	var body strings.Builder
	flush := func() {
		current.body = body.String()
		sections = append(sections, current)
		body.Reset()
	}

	started := false
	for _, line := range lines {
		if isSectionHeader(line) {
			if started {
				flush()
			}
			started = true
			current = section{header: strings.TrimSpace(line)}
			continue
		}
		started = true
		if body.Len() > 0 {
			body.WriteByte('\n')
		}
		body.WriteString(line)
	}
	if started {
		flush()
	}
	return sections
}

func isSectionHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	return (strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "### ")) ||
		trimmed == "##" || trimmed == "###"
}

func joinHeader(header, body string) string {
	switch {
	case header == "":
		return body
	case body == "":
		return header
	default:
		return header + "\n\n" + body
	}
}

// packParagraphs greedily packs a section's paragraphs into chunks of
// roughly TargetTokens. Each chunk is prefixed with the section header.
// A single paragraph exceeding MaxTokens is emitted oversized rather
// than split mid-paragraph. Fragments under MinTokens are dropped
// unless they are the section's only chunk.
func packParagraphs(header, body string, opts Options) []string {
	paragraphs := splitParagraphs(body)
	if len(paragraphs) == 0 {
		if header != "" {
			return []string{header}
		}
		return nil
	}

	headerTokens := EstimateTokens(header)

	var packed []string
	var buf []string
	bufTokens := 0
	flush := func() {
		if len(buf) == 0 {
			return
		}
		packed = append(packed, joinHeader(header, strings.Join(buf, "\n\n")))
		buf = buf[:0]
		bufTokens = 0
	}

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)
		if headerTokens+bufTokens+paraTokens > opts.TargetTokens && len(buf) > 0 {
			flush()
		}
		buf = append(buf, para)
		bufTokens += paraTokens
		// An oversized lone paragraph goes out as its own chunk.
		if len(buf) == 1 && headerTokens+paraTokens > opts.MaxTokens {
			flush()
		}
	}
	flush()

	if len(packed) <= 1 {
		return packed
	}

	kept := packed[:0]
	for _, c := range packed {
		if EstimateTokens(c) >= opts.MinTokens {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		// Everything was below the floor; keep the first piece so the
		// section is not silently lost.
		return packed[:1]
	}
	return kept
}

func splitParagraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(body, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
