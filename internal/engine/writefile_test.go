package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/relay/internal/logging"
)

func testExtractor(t *testing.T) (*Extractor, string) {
	t.Helper()
	return NewExtractor(logging.New(nil, "silent")), t.TempDir()
}

func TestExtract_AdjacentFenceAfterMarker(t *testing.T) {
	x, dir := testExtractor(t)

	response := "[[out.txt]]\n```\nhello fenced world\n```\n"
	writes, skips := x.Extract(response, dir)
	require.Len(t, writes, 1)
	assert.Empty(t, skips)
	assert.Equal(t, "out.txt", writes[0].Path)
	assert.Empty(t, writes[0].Error)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello fenced world", string(data))
}

func TestExtract_FenceBeforeMarker(t *testing.T) {
	x, dir := testExtractor(t)

	response := "```python\nprint('hi there')\n```\n[[script.py]]"
	writes, skips := x.Extract(response, dir)
	require.Len(t, writes, 1)
	assert.Empty(t, skips)

	data, err := os.ReadFile(filepath.Join(dir, "script.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi there')", string(data))
}

func TestExtract_FenceInfoStringStripped(t *testing.T) {
	x, dir := testExtractor(t)

	response := "[[main.go]]\n```go\npackage main\n\nfunc main() {}\n```"
	writes, _ := x.Extract(response, dir)
	require.Len(t, writes, 1)

	data, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {}", string(data))
}

func TestExtract_ProseAfterMarker(t *testing.T) {
	x, dir := testExtractor(t)

	response := "[[notes.txt]]\nThese are the meeting notes from Tuesday's planning session."
	writes, skips := x.Extract(response, dir)
	require.Len(t, writes, 1)
	assert.Empty(t, skips)

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "These are the meeting notes from Tuesday's planning session.", string(data))
}

func TestExtract_ProseBeforeMarkerWhenNothingAfter(t *testing.T) {
	x, dir := testExtractor(t)

	response := "A complete summary of the quarterly figures goes here.\n[[summary.txt]]"
	writes, skips := x.Extract(response, dir)
	require.Len(t, writes, 1)
	assert.Empty(t, skips)
}

func TestExtract_MultipleMarkersIndependent(t *testing.T) {
	x, dir := testExtractor(t)

	response := "[[a.txt]]\n```\ncontent for file a\n```\n[[b.txt]]\n```\ncontent for file b\n```"
	writes, skips := x.Extract(response, dir)
	require.Len(t, writes, 2)
	assert.Empty(t, skips)

	a, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content for file a", string(a))
	b, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content for file b", string(b))
}

func TestExtract_QuotedPathWithSpaces(t *testing.T) {
	x, dir := testExtractor(t)

	response := `[["my report.txt"]]` + "\n```\nquarterly report body\n```"
	writes, _ := x.Extract(response, dir)
	require.Len(t, writes, 1)
	assert.Equal(t, "my report.txt", writes[0].Path)

	_, err := os.Stat(filepath.Join(dir, "my report.txt"))
	assert.NoError(t, err)
}

func TestExtract_OverwriteNotAppend(t *testing.T) {
	x, dir := testExtractor(t)

	response := "[[out.txt]]\n```\nsecond run content wins\n```"
	x.Extract(response, dir)
	writes, _ := x.Extract(response, dir)
	require.Len(t, writes, 1)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second run content wins", string(data))
}

func TestExtract_NoContent(t *testing.T) {
	x, dir := testExtractor(t)

	writes, skips := x.Extract("[[empty.txt]]", dir)
	assert.Empty(t, writes)
	require.Len(t, skips, 1)
	assert.Equal(t, "no content extracted", skips[0].Reason)
}

func TestExtract_ContentTooShort(t *testing.T) {
	x, dir := testExtractor(t)

	writes, skips := x.Extract("[[tiny.txt]]\nok", dir)
	assert.Empty(t, writes)
	require.Len(t, skips, 1)
	assert.Equal(t, "content too short", skips[0].Reason)
}

func TestExtract_NarrationSkipped(t *testing.T) {
	x, dir := testExtractor(t)

	response := "[[plan.txt]]\nI'll create a detailed plan covering the three milestones we discussed."
	writes, skips := x.Extract(response, dir)
	assert.Empty(t, writes)
	require.Len(t, skips, 1)
	assert.Contains(t, skips[0].Reason, "narration")

	_, err := os.Stat(filepath.Join(dir, "plan.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtract_NarrationPhraseInsideFenceIsKept(t *testing.T) {
	x, dir := testExtractor(t)

	// Fenced content is data even when it contains a denylisted phrase.
	response := "[[log.txt]]\n```\nuser said: I'll create the ticket tomorrow\n```"
	writes, skips := x.Extract(response, dir)
	require.Len(t, writes, 1)
	assert.Empty(t, skips)
}

func TestExtract_MissingExtensionRejected(t *testing.T) {
	x, dir := testExtractor(t)

	writes, _ := x.Extract("[[noext]]\n```\nsome file content here\n```", dir)
	require.Len(t, writes, 1)
	assert.Equal(t, "missing file extension", writes[0].Error)
}

func TestExtract_InvalidCharactersRejected(t *testing.T) {
	x, dir := testExtractor(t)

	writes, _ := x.Extract(`[[bad|name.txt]]`+"\n```\nsome file content here\n```", dir)
	require.Len(t, writes, 1)
	assert.Equal(t, "invalid characters in path", writes[0].Error)
}

func TestExtract_PathTooLongRejected(t *testing.T) {
	x, dir := testExtractor(t)

	long := make([]byte, 270)
	for i := range long {
		long[i] = 'a'
	}
	writes, _ := x.Extract("[["+string(long)+".txt]]\n```\nsome file content here\n```", dir)
	require.Len(t, writes, 1)
	assert.Equal(t, "path too long", writes[0].Error)
}

func TestExtract_CreatesParentDirectories(t *testing.T) {
	x, dir := testExtractor(t)

	writes, _ := x.Extract("[[sub/dir/deep.txt]]\n```\nnested file content\n```", dir)
	require.Len(t, writes, 1)
	assert.Empty(t, writes[0].Error)

	_, err := os.Stat(filepath.Join(dir, "sub", "dir", "deep.txt"))
	assert.NoError(t, err)
}

func TestExtract_NoMarkers(t *testing.T) {
	x, dir := testExtractor(t)

	writes, skips := x.Extract("just a plain response with no file requests", dir)
	assert.Empty(t, writes)
	assert.Empty(t, skips)
}
