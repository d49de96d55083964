package detection

import (
	"regexp"
	"strings"

	"github.com/sentri/retail-security/internal/domain"
)

var (
	// URLs run up to whitespace or enclosing punctuation
	embeddedLinkRe = regexp.MustCompile(`(?i)https?://[^\s<>()\[\]{}"'` + "`" + `]+`)

	fromLineRe    = regexp.MustCompile(`(?i)^from:\s*(.*)$`)
	subjectLineRe = regexp.MustCompile(`(?i)^subject:\s*(.*)$`)
)

// ExtractEmailMetadata pulls the sender, subject and embedded links out of raw
// email text.
//
// From and Subject are only recognised as whole-line prefixes; the first
// occurrence wins. Links keep their order of appearance and duplicates are
// retained.
func ExtractEmailMetadata(text string) domain.EmailMetadata {
	meta := domain.EmailMetadata{EmbeddedLinks: make([]string, 0)}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if meta.From == nil {
			if m := fromLineRe.FindStringSubmatch(line); m != nil {
				from := strings.TrimSpace(m[1])
				meta.From = &from
				continue
			}
		}
		if meta.Subject == nil {
			if m := subjectLineRe.FindStringSubmatch(line); m != nil {
				subject := strings.TrimSpace(m[1])
				meta.Subject = &subject
			}
		}
	}

	for _, link := range embeddedLinkRe.FindAllString(text, -1) {
		meta.EmbeddedLinks = append(meta.EmbeddedLinks, trimTrailingPunctuation(link))
	}

	return meta
}

// trimTrailingPunctuation drops sentence punctuation glued to the end of a URL
func trimTrailingPunctuation(link string) string {
	return strings.TrimRight(link, ".,;:!?")
}
