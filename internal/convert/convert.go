// Package convert is the document-to-text conversion boundary. Non-text file
// formats referenced by read markers are routed here and come back as markdown.
package convert

import (
	"context"
	"path/filepath"
	"strings"
)

// Kind classifies a file path by extension for read-marker routing.
type Kind int

const (
	KindUnknown Kind = iota
	KindText         // inlined verbatim
	KindDocument     // routed through a Converter
	KindImage        // attached base64 for vision-capable models
)

var textExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".log": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".sh": true,
	".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".xml": true,
}

var documentExts = map[string]bool{
	".pdf": true, ".docx": true, ".doc": true, ".pptx": true, ".ppt": true,
	".xlsx": true, ".xls": true, ".json": true, ".csv": true, ".html": true,
	".htm": true, ".epub": true,
}

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

// Detect returns the Kind for a file path based on its extension.
func Detect(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext] != "":
		return KindImage
	case documentExts[ext]:
		return KindDocument
	case textExts[ext]:
		return KindText
	default:
		return KindUnknown
	}
}

// ImageMediaType returns the MIME type for an image path, or "" if the
// extension is not a recognized image format.
func ImageMediaType(path string) string {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Converter turns a non-text document into markdown text.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}
