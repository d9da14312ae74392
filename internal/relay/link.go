package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const statusLinkBase = "http://twitter.com"

// StatusLink is the canonical text posted for a status. The same string is
// looked up in the channel history to detect reposts.
func StatusLink(s Status) string {
	handle := strings.TrimSpace(strings.TrimPrefix(s.User.ScreenName, "@"))
	if handle == "" {
		return fmt.Sprintf("%s/i/web/status/%d", statusLinkBase, s.ID)
	}
	return fmt.Sprintf("%s/%s/status/%d", statusLinkBase, handle, s.ID)
}

// normalizePrevious undoes Slack's link wrapping ("<http://...>") so history
// entries compare equal to StatusLink output.
func normalizePrevious(text string) string {
	return strings.Trim(strings.TrimSpace(text), "<>")
}

func previousSet(texts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		if n := normalizePrevious(t); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

// excerpt collapses whitespace in text and cuts it to at most n runes,
// marking a cut with "...".
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
