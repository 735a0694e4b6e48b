// Package extract classifies the text carried by an agent message into
// reasoning and answer content. The wire format does not distinguish the
// two; a fragment is reasoning only by its marker prefix, so the tag is
// derived here at read time and never stored.
package extract

import (
	"strings"

	"github.com/wharfside/deepresearch/internal/agents"
	"github.com/wharfside/deepresearch/internal/citations"
)

// ReasoningPrefix marks internal-notes fragments surfaced by the runtime
// while a run is still in flight.
const ReasoningPrefix = "cot_summary:"

type Content struct {
	Reasoning []string
	Answer    []string
	Citations []citations.Entry
}

// Extract splits the message's fragments into reasoning and answer text,
// preserving fragment order within each class, and collects its citation
// annotations. The message is never mutated.
func Extract(message *agents.Message) Content {
	content := Content{Reasoning: []string{}, Answer: []string{}, Citations: []citations.Entry{}}
	if message == nil {
		return content
	}
	for _, fragment := range message.TextFragments() {
		if strings.HasPrefix(fragment, ReasoningPrefix) {
			content.Reasoning = append(content.Reasoning, strings.TrimSpace(strings.TrimPrefix(fragment, ReasoningPrefix)))
			continue
		}
		content.Answer = append(content.Answer, fragment)
	}
	content.Citations = citations.BuildReferenceList(message.URLCitationAnnotations())
	return content
}

// HasReasoning reports whether any fragment carries the reasoning marker.
func HasReasoning(message *agents.Message) bool {
	if message == nil {
		return false
	}
	for _, fragment := range message.TextFragments() {
		if strings.HasPrefix(fragment, ReasoningPrefix) {
			return true
		}
	}
	return false
}
