package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// placeholderRe matches {{Agent-N}} tokens, N a positive integer. Case-sensitive.
var placeholderRe = regexp.MustCompile(`\{\{Agent-([1-9][0-9]*)\}\}`)

// previewLimit caps substituted text in display previews.
const previewLimit = 500

// ResolvePlaceholders replaces every {{Agent-N}} token with the output of
// agent N from the current pass. References to agents that have not completed
// resolve to a sentinel, never an error. Resolution is a single linear scan;
// substituted text is not rescanned.
func ResolvePlaceholders(template string, outputs map[int]string) string {
	return resolve(template, outputs, 0)
}

// ResolvePlaceholdersPreview is the display variant: each substituted output
// is truncated to 500 characters with a trailing ellipsis. The text sent to
// the model always uses ResolvePlaceholders.
func ResolvePlaceholdersPreview(template string, outputs map[int]string) string {
	return resolve(template, outputs, previewLimit)
}

func resolve(template string, outputs map[int]string, limit int) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			return match
		}
		out, ok := outputs[n]
		if !ok {
			return fmt.Sprintf("[Agent-%d output not available]", n)
		}
		if limit > 0 && len(out) > limit {
			return truncateRunes(out, limit) + "..."
		}
		return out
	})
}

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
