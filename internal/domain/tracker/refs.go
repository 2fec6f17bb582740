package tracker

import (
	"regexp"
	"sort"
	"strings"
)

// Commit authors are inconsistent about how they mention tickets, so four
// independent pattern families run over the text and their matches are
// unioned. Over-matching an unrelated hyphenated token is accepted; missing
// a real reference is not. Whether an identifier names an existing ticket is
// decided later, against the owning project.
var (
	closingRefPattern   = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s+#?([A-Za-z]+-\d+)\b`)
	keywordRefPattern   = regexp.MustCompile(`(?i)\b(?:refs?|references?)\s+#?([A-Za-z]+-\d+)\b`)
	bareRefPattern      = regexp.MustCompile(`(?i)\b([A-Za-z]+-\d+)\b`)
	bracketedRefPattern = regexp.MustCompile(`(?i)\[([A-Za-z]+-\d+)\]`)
)

var refPatterns = []*regexp.Regexp{
	closingRefPattern,
	keywordRefPattern,
	bareRefPattern,
	bracketedRefPattern,
}

// ExtractTicketRefs returns the distinct ticket identifiers referenced in
// free text (a commit message, or a PR title plus body), uppercased. The
// result is sorted so callers that pick the "first" reference do so
// deterministically. Pure function, safe for concurrent use.
func ExtractTicketRefs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	for _, pattern := range refPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			seen[strings.ToUpper(match[1])] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}
