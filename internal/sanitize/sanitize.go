// Package sanitize cleans free text taken from configuration files before it
// is shown to MCP clients. Scenario descriptions end up in markdown read by a
// language model, so markup that could restructure that document is removed.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxDescriptionLength is the maximum length of a sanitized description, in bytes.
const MaxDescriptionLength = 300

var (
	// reXMLTag matches XML/HTML tags, with attributes or self-closing, and
	// processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reMarkdownHeading matches a heading marker at the start of the text.
	reMarkdownHeading = regexp.MustCompile(`^#{1,6}\s+`)

	reBackticks = regexp.MustCompile("`+")

	reSpaces = regexp.MustCompile(`\s+`)
)

// Description returns input as a single line of plain text:
//  1. control characters and line breaks become spaces
//  2. XML/HTML tags and backticks are removed
//  3. whitespace runs collapse to one space
//  4. a leading markdown heading marker is removed
//  5. the result is truncated to MaxDescriptionLength
func Description(input string) string {
	if input == "" {
		return ""
	}

	s := controlToSpace(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reBackticks.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = reMarkdownHeading.ReplaceAllString(s, "")

	if len(s) > MaxDescriptionLength {
		s = truncate(s, MaxDescriptionLength) + "..."
	}
	return s
}

// controlToSpace replaces ASCII control characters, including newlines and
// tabs, with spaces.
func controlToSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
