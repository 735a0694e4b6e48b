// Package report combines an agent's final answer with its normalized
// reference list and renders the result as Markdown, HTML, or a flat
// block sequence for document export.
package report

import (
	"fmt"
	"strings"

	"github.com/wharfside/deepresearch/internal/agents"
	"github.com/wharfside/deepresearch/internal/citations"
	"github.com/wharfside/deepresearch/internal/extract"
)

type Report struct {
	Answer     string
	References []citations.Entry
}

// Assemble builds a report from the final agent message. A nil message
// yields an empty report; absence of content is not an error.
func Assemble(message *agents.Message) Report {
	if message == nil {
		return Report{References: []citations.Entry{}}
	}
	content := extract.Extract(message)
	trimmed := make([]string, 0, len(content.Answer))
	for _, fragment := range content.Answer {
		if s := strings.TrimSpace(fragment); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return Report{
		Answer:     strings.Join(trimmed, "\n\n"),
		References: content.Citations,
	}
}

// Markdown renders the report with bracketed citation numbers and a
// References section.
func (r Report) Markdown() string {
	body := citations.ToBracket(r.Answer)
	if len(r.References) == 0 {
		return body
	}
	lines := []string{body, "", "## References", ""}
	for _, entry := range r.References {
		lines = append(lines, citations.FormatEntry(entry))
	}
	return strings.Join(lines, "\n")
}

// HTML renders the report with superscript citation numbers and an HTML
// reference list. Answer text without any HTML structure is wrapped into
// headings and paragraphs first.
func (r Report) HTML() string {
	body := ensureHTMLStructure(citations.ToSuperscript(r.Answer))
	if len(r.References) == 0 {
		return body
	}
	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString("\n\n<h2>References</h2>\n<ul>\n")
	for _, entry := range r.References {
		fmt.Fprintf(&sb, "<li>%d. <a href=\"%s\">%s</a></li>\n", entry.Index, entry.URL, entry.Title)
	}
	sb.WriteString("</ul>\n")
	return sb.String()
}

type Block struct {
	// Heading is 1-3 for headings, 0 for a plain paragraph.
	Heading int
	Text    string
}

// Blocks flattens the Markdown rendering into {heading-level, text} and
// {paragraph} blocks, the only structure the document exporter consumes.
func (r Report) Blocks() []Block {
	return ParseBlocks(r.Markdown())
}

// ParseBlocks splits already-rendered Markdown into export blocks.
func ParseBlocks(markdown string) []Block {
	blocks := []Block{}
	paragraph := ""
	flush := func() {
		if s := strings.TrimSpace(paragraph); s != "" {
			blocks = append(blocks, Block{Text: s})
		}
		paragraph = ""
	}
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "### "):
			flush()
			blocks = append(blocks, Block{Heading: 3, Text: strings.TrimPrefix(line, "### ")})
		case strings.HasPrefix(line, "## "):
			flush()
			blocks = append(blocks, Block{Heading: 2, Text: strings.TrimPrefix(line, "## ")})
		case strings.HasPrefix(line, "# "):
			flush()
			blocks = append(blocks, Block{Heading: 1, Text: strings.TrimPrefix(line, "# ")})
		default:
			if paragraph != "" {
				paragraph += " "
			}
			paragraph += line
		}
	}
	flush()
	return blocks
}

var htmlStructureTags = []string{"<h1>", "<h2>", "<h3>", "<p>", "<div>"}

// ensureHTMLStructure wraps unstructured text into <h3>/<p> elements.
// Short lines ending in a colon read as section headers.
func ensureHTMLStructure(text string) string {
	for _, tag := range htmlStructureTags {
		if strings.Contains(text, tag) {
			return text
		}
	}
	paragraphs := strings.Split(text, "\n\n")
	wrapped := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if strings.HasSuffix(paragraph, ":") && len(paragraph) < 100 {
			wrapped = append(wrapped, "<h3>"+paragraph+"</h3>")
			continue
		}
		wrapped = append(wrapped, "<p>"+paragraph+"</p>")
	}
	return strings.Join(wrapped, "\n")
}
