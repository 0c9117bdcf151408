package convert

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// LocalConverter converts the document formats that can be handled without an
// external service: HTML, CSV, and JSON. Binary office formats (pdf, docx,
// xlsx, ...) need a real conversion back-end and error out here.
type LocalConverter struct{}

// NewLocalConverter creates a converter for locally convertible formats.
func NewLocalConverter() *LocalConverter {
	return &LocalConverter{}
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)\b.*?</(script|style)>`)
	htmlTagRe     = regexp.MustCompile(`(?s)<[^>]+>`)
	htmlEntities  = strings.NewReplacer(
		"&amp;", "&", "&lt;", "<", "&gt;", ">",
		"&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
	)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

// Convert reads the file and returns a markdown rendering of its content.
func (c *LocalConverter) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".html", ".htm":
		return c.convertHTML(path)
	case ".csv":
		return c.convertCSV(path)
	case ".json":
		return c.convertJSON(path)
	default:
		return "", fmt.Errorf("unsupported document format %q (no conversion back-end configured)", ext)
	}
}

func (c *LocalConverter) convertHTML(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	text := scriptStyleRe.ReplaceAllString(string(data), "")
	text = htmlTagRe.ReplaceAllString(text, "\n")
	text = htmlEntities.Replace(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	out := blankRunsRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out), nil
}

func (c *LocalConverter) convertCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	var b strings.Builder
	for i, row := range records {
		b.WriteString("| ")
		b.WriteString(strings.Join(row, " | "))
		b.WriteString(" |\n")
		if i == 0 {
			b.WriteString("|")
			b.WriteString(strings.Repeat(" --- |", len(row)))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (c *LocalConverter) convertJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var pretty any
	if err := json.Unmarshal(data, &pretty); err != nil {
		return "", fmt.Errorf("parsing json: %w", err)
	}
	formatted, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return "", err
	}

	return "```json\n" + string(formatted) + "\n```", nil
}
