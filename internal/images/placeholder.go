package images

import (
	"fmt"
	"regexp"
)

// placeholderPattern matches the generation directive the agent embeds in
// its HTML output: <img src="GENERATE_IMAGE:prompt" alt="alt text">.
var placeholderPattern = regexp.MustCompile(`<img src="GENERATE_IMAGE:([^"]+)" alt="([^"]*)"[^>]*>`)

// GenerateFunc materializes one prompt and returns the artifact filename.
type GenerateFunc func(prompt string) (string, error)

// ResolvePlaceholders replaces every generation directive in left-to-right
// order. A failing generate call degrades that one tag to a readable text
// fallback carrying its alt text; the remaining directives still resolve.
// A nil generate leaves plain placeholders for every directive.
func ResolvePlaceholders(html string, generate GenerateFunc) string {
	return placeholderPattern.ReplaceAllStringFunc(html, func(tag string) string {
		groups := placeholderPattern.FindStringSubmatch(tag)
		prompt, alt := groups[1], groups[2]
		if generate == nil {
			return fmt.Sprintf("<p><strong>Image placeholder:</strong> %s</p>", alt)
		}
		filename, err := generate(prompt)
		if err != nil {
			return fmt.Sprintf("<p><strong>Image generation failed:</strong> %s</p>", alt)
		}
		return fmt.Sprintf(`<img src="./images/%s" alt="%s" style="max-width: 100%%; height: auto;">`, filename, alt)
	})
}
