package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/soyeahso/relay/internal/domain"
	"github.com/soyeahso/relay/internal/logging"
)

// writeMarkerRe matches [[path]] markers in a model response. Quoting rules
// match the read markers.
var writeMarkerRe = regexp.MustCompile(`\[\[(?:"([^"]+)"|([^\[\]"\s][^\[\]]*?))\]\]`)

// fencedBlockRe matches one fenced code block, capturing its inner text
// without the fences or the info string.
var fencedBlockRe = regexp.MustCompile("(?s)```[^`\n]*\n(.*?)\n?```")

const (
	// minContentLength guards against writing stray fragments as files.
	minContentLength = 10

	// maxPathLength mirrors the common filesystem path limit.
	maxPathLength = 260

	// maxWriteBytes caps the size of a single extracted file.
	maxWriteBytes = 10 * 1024 * 1024
)

// narrationPhrases flags candidate text that reads as assistant commentary
// about a file rather than the file's content. Matched case-insensitively,
// and only when the candidate carries no code fence.
var narrationPhrases = []string{
	"i'll create",
	"i will create",
	"i'll write",
	"i will write",
	"i'll include",
	"here's what i'll",
	"i have created",
	"i've created",
}

// invalidPathChars are rejected anywhere in a path component.
const invalidPathChars = `<>:"|?*`

// WriteSkip records one write marker whose content was rejected before any
// disk I/O happened.
type WriteSkip struct {
	Path   string
	Reason string
}

// Extractor scans model responses for [[path]] markers and persists the
// content associated with each one.
type Extractor struct {
	log *logging.Logger
}

// NewExtractor creates a write-file extractor.
func NewExtractor(log *logging.Logger) *Extractor {
	return &Extractor{log: log.Sub("engine.writefile")}
}

// marker is one [[path]] occurrence with its span in the response.
type marker struct {
	path  string
	start int
	end   int
}

// Extract processes every write marker in the response. Content extraction
// failures become skips; path and I/O failures become FileWrite entries with
// Error set. Markers never influence each other.
func (x *Extractor) Extract(response, workdir string) ([]domain.FileWrite, []WriteSkip) {
	idxs := writeMarkerRe.FindAllStringSubmatchIndex(response, -1)
	if len(idxs) == 0 {
		return nil, nil
	}

	markers := make([]marker, 0, len(idxs))
	for _, m := range idxs {
		path := ""
		if m[2] >= 0 {
			path = response[m[2]:m[3]]
		} else {
			path = strings.TrimSpace(response[m[4]:m[5]])
		}
		markers = append(markers, marker{path: path, start: m[0], end: m[1]})
	}

	var writes []domain.FileWrite
	var skips []WriteSkip
	for i, m := range markers {
		segBefore, segAfter := surroundingSegments(response, markers, i)

		content, reason := extractContent(segBefore, segAfter)
		if reason != "" {
			x.log.Warn().Str("path", m.path).Str("reason", reason).Msg("write marker skipped")
			skips = append(skips, WriteSkip{Path: m.path, Reason: reason})
			continue
		}

		writes = append(writes, x.write(m.path, content, workdir))
	}
	return writes, skips
}

// surroundingSegments returns the response text between marker i and its
// neighbors (or the response boundaries).
func surroundingSegments(response string, markers []marker, i int) (before, after string) {
	lo := 0
	if i > 0 {
		lo = markers[i-1].end
	}
	hi := len(response)
	if i < len(markers)-1 {
		hi = markers[i+1].start
	}
	return response[lo:markers[i].start], response[markers[i].end:hi]
}

// extractContent applies the ordered extraction policy: an adjacent fenced
// code block wins, then prose after the marker, then prose before it. A
// non-empty reason means the marker is skipped.
func extractContent(segBefore, segAfter string) (string, string) {
	if inner, ok := fenceAtStart(segAfter); ok {
		return checkLength(inner)
	}
	if inner, ok := fenceAtEnd(segBefore); ok {
		return checkLength(inner)
	}

	if prose := strings.TrimSpace(segAfter); prose != "" {
		return checkProse(prose)
	}
	if prose := strings.TrimSpace(segBefore); prose != "" {
		return checkProse(prose)
	}
	return "", "no content extracted"
}

// fenceAtStart reports a fenced block that opens the segment, ignoring
// leading whitespace.
func fenceAtStart(seg string) (string, bool) {
	trimmed := strings.TrimLeft(seg, " \t\r\n")
	loc := fencedBlockRe.FindStringSubmatchIndex(trimmed)
	if loc == nil || loc[0] != 0 {
		return "", false
	}
	return trimmed[loc[2]:loc[3]], true
}

// fenceAtEnd reports a fenced block that closes the segment, ignoring
// trailing whitespace.
func fenceAtEnd(seg string) (string, bool) {
	trimmed := strings.TrimRight(seg, " \t\r\n")
	locs := fencedBlockRe.FindAllStringSubmatchIndex(trimmed, -1)
	if len(locs) == 0 {
		return "", false
	}
	last := locs[len(locs)-1]
	if last[1] != len(trimmed) {
		return "", false
	}
	return trimmed[last[2]:last[3]], true
}

func checkLength(content string) (string, string) {
	if len(strings.TrimSpace(content)) < minContentLength {
		return "", "content too short"
	}
	return content, ""
}

func checkProse(prose string) (string, string) {
	if isNarration(prose) {
		return "", "content looks like narration, not file data"
	}
	return checkLength(prose)
}

// isNarration applies the phrase denylist. Text that carries a code fence is
// never treated as narration.
func isNarration(text string) bool {
	if strings.Contains(text, "```") {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range narrationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// write validates the path and persists content, creating parent directories
// as needed. Existing files are overwritten.
func (x *Extractor) write(path, content, workdir string) domain.FileWrite {
	fw := domain.FileWrite{Path: path}

	if err := validateWritePath(path); err != nil {
		fw.Error = err.Error()
		x.log.Warn().Str("path", path).Err(err).Msg("write rejected")
		return fw
	}
	if len(content) > maxWriteBytes {
		fw.Error = fmt.Sprintf("content too large: %d bytes (max %d)", len(content), maxWriteBytes)
		x.log.Warn().Str("path", path).Msg("write rejected, content too large")
		return fw
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(workdir, full)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		fw.Error = writeFailureReason(err)
		return fw
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		fw.Error = writeFailureReason(err)
		x.log.Warn().Str("path", full).Err(err).Msg("write failed")
		return fw
	}

	fw.BytesWritten = len(content)
	x.log.Info().Str("path", full).Int("bytes", fw.BytesWritten).Msg("file written")
	return fw
}

func validateWritePath(path string) error {
	if len(path) > maxPathLength {
		return fmt.Errorf("path too long")
	}
	base := filepath.Base(path)
	if filepath.Ext(base) == "" {
		return fmt.Errorf("missing file extension")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.ContainsAny(part, invalidPathChars) {
			return fmt.Errorf("invalid characters in path")
		}
	}
	return nil
}

func writeFailureReason(err error) string {
	if os.IsPermission(err) {
		return "permission denied"
	}
	return err.Error()
}
