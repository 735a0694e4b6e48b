// Package citations rewrites the runtime's embedded citation markers and
// builds the numbered reference list for a report.
//
// A marker looks like 【42:3†source】. The first number groups citations by
// search pass and is meaningless to readers; the second is the human-facing
// citation number and the only part that survives rendering.
package citations

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/wharfside/deepresearch/internal/agents"
)

type Entry struct {
	Index int
	Title string
	URL   string
}

var (
	markerPattern = regexp.MustCompile(`【\d+:(\d+)†source】`)
	indexPattern  = regexp.MustCompile(`【\d+:(\d+)`)
)

// ToSuperscript replaces every citation marker with <sup>M</sup>. Total and
// idempotent: text without markers passes through unchanged, and rewritten
// text no longer matches the source pattern.
func ToSuperscript(text string) string {
	return markerPattern.ReplaceAllString(text, "<sup>$1</sup>")
}

// ToBracket replaces every citation marker with [M] for plain-text output.
func ToBracket(text string) string {
	return markerPattern.ReplaceAllString(text, "[$1]")
}

// BuildReferenceList dedupes annotations by URL (first occurrence wins,
// including its title) and numbers each entry by the index parsed from its
// marker text. Annotations without a parseable marker get the next integer
// after the current maximum, so explicit indices may leave gaps. The result
// is sorted by index ascending.
func BuildReferenceList(annotations []agents.Annotation) []Entry {
	seenURLs := map[string]bool{}
	byIndex := map[int]Entry{}
	maxIndex := 0

	for _, ann := range annotations {
		if ann.URLCitation == nil || ann.URLCitation.URL == "" {
			continue
		}
		url := ann.URLCitation.URL
		if seenURLs[url] {
			continue
		}
		seenURLs[url] = true

		title := ann.URLCitation.Title
		if title == "" {
			title = url
		}
		index, ok := parseIndex(ann.Text)
		if !ok {
			index = maxIndex + 1
		}
		if index > maxIndex {
			maxIndex = index
		}
		if _, taken := byIndex[index]; taken {
			continue
		}
		byIndex[index] = Entry{Index: index, Title: title, URL: url}
	}

	indices := make([]int, 0, len(byIndex))
	for index := range byIndex {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	entries := make([]Entry, 0, len(indices))
	for _, index := range indices {
		entries = append(entries, byIndex[index])
	}
	return entries
}

// FormatEntry renders one reference-list line: "{index}. [{title}]({url})".
func FormatEntry(entry Entry) string {
	return fmt.Sprintf("%d. [%s](%s)", entry.Index, entry.Title, entry.URL)
}

func parseIndex(markerText string) (int, bool) {
	match := indexPattern.FindStringSubmatch(markerText)
	if match == nil {
		return 0, false
	}
	index, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return index, true
}
