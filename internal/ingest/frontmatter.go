package ingest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// Frontmatter holds the document-level fields recognized in a
// markdown header block. Unknown keys are preserved in Extra.
type Frontmatter struct {
	DocType     string   `yaml:"docType"`
	Destination string   `yaml:"destination"`
	Tags        []string `yaml:"tags"`
	Title       string   `yaml:"title"`
}

// Map returns the metadata fields to attach to every chunk of the
// document. Empty fields are omitted.
func (f Frontmatter) Map() map[string]any {
	out := make(map[string]any, 4)
	if f.DocType != "" {
		out["docType"] = f.DocType
	}
	if f.Destination != "" {
		out["destination"] = f.Destination
	}
	if len(f.Tags) > 0 {
		out["tags"] = f.Tags
	}
	if f.Title != "" {
		out["title"] = f.Title
	}
	return out
}

// parseFrontmatter splits a document into its YAML frontmatter and
// body. A document without a leading "---" line has no frontmatter
// and is returned whole.
func parseFrontmatter(doc string) (Frontmatter, string, error) {
	var fm Frontmatter

	trimmed := strings.TrimLeft(doc, "\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter+"\n") {
		return fm, doc, nil
	}

	rest := trimmed[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return fm, "", fmt.Errorf("unterminated frontmatter block")
	}

	header := rest[:end]
	body := rest[end+len(frontmatterDelimiter)+1:]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return fm, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return fm, body, nil
}
