package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/soyeahso/relay/internal/convert"
	"github.com/soyeahso/relay/internal/llm"
	"github.com/soyeahso/relay/internal/logging"
)

// readMarkerRe matches <<path>> markers. The path may be double-quoted to
// allow embedded spaces; unquoted paths run to the closing >>.
var readMarkerRe = regexp.MustCompile(`<<(?:"([^"]+)"|([^<>"\s][^<>]*?))>>`)

// maxFileBytes caps how much file content a single marker may load.
const maxFileBytes = 10 * 1024 * 1024

// MarkerFailure records one read marker that could not be expanded.
type MarkerFailure struct {
	Path   string
	Reason string
}

// InjectResult is the outcome of expanding all read markers in a prompt.
type InjectResult struct {
	Prompt      string
	Attachments []llm.Attachment
	Failures    []MarkerFailure
}

// Injector expands <<path>> markers into file content. Text-like files are
// inlined between labeled delimiters, documents are routed through the
// converter, and images become base64 attachments for vision-capable models.
type Injector struct {
	conv convert.Converter
	log  *logging.Logger
}

// NewInjector creates a read-file injector.
func NewInjector(conv convert.Converter, log *logging.Logger) *Injector {
	return &Injector{conv: conv, log: log.Sub("engine.readfile")}
}

// Inject expands every marker in the prompt. A failing marker is replaced
// with an inline error annotation and recorded; it never aborts the agent.
// All markers are processed before the prompt is returned.
func (inj *Injector) Inject(ctx context.Context, prompt, workdir string) InjectResult {
	res := InjectResult{}

	res.Prompt = readMarkerRe.ReplaceAllStringFunc(prompt, func(match string) string {
		path := markerPath(readMarkerRe, match)
		expanded, att, err := inj.expand(ctx, path, workdir)
		if err != nil {
			inj.log.Warn().Str("path", path).Err(err).Msg("read marker failed")
			res.Failures = append(res.Failures, MarkerFailure{Path: path, Reason: err.Error()})
			return fmt.Sprintf("[file error: %s: %s]", path, err.Error())
		}
		if att != nil {
			res.Attachments = append(res.Attachments, *att)
			return fmt.Sprintf("[attached image: %s]", filepath.Base(path))
		}
		return expanded
	})

	return res
}

// expand loads one file. Exactly one of the text result or attachment is set.
func (inj *Injector) expand(ctx context.Context, path, workdir string) (string, *llm.Attachment, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(workdir, full)
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found")
		}
		if os.IsPermission(err) {
			return "", nil, fmt.Errorf("permission denied")
		}
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("path is a directory")
	}
	if info.Size() > maxFileBytes {
		return "", nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxFileBytes)
	}

	switch convert.Detect(full) {
	case convert.KindImage:
		data, err := os.ReadFile(full)
		if err != nil {
			return "", nil, readErr(err)
		}
		return "", &llm.Attachment{
			Name:      filepath.Base(full),
			MediaType: convert.ImageMediaType(full),
			Data:      base64.StdEncoding.EncodeToString(data),
		}, nil

	case convert.KindDocument:
		md, err := inj.conv.Convert(ctx, full)
		if err != nil {
			return "", nil, fmt.Errorf("conversion failed: %w", err)
		}
		return wrapFileContent(path, md), nil, nil

	default:
		// Text and unknown kinds are read verbatim; content that is not
		// valid UTF-8 is rejected rather than inlined as garbage.
		data, err := os.ReadFile(full)
		if err != nil {
			return "", nil, readErr(err)
		}
		if !utf8.Valid(data) {
			return "", nil, fmt.Errorf("unrecognized binary format")
		}
		return wrapFileContent(path, string(data)), nil, nil
	}
}

func readErr(err error) error {
	if os.IsPermission(err) {
		return fmt.Errorf("permission denied")
	}
	return err
}

// wrapFileContent frames injected content so the model can tell where a file
// begins and ends.
func wrapFileContent(path, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- BEGIN FILE: %s ---\n", path)
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "--- END FILE: %s ---", path)
	return b.String()
}

// markerPath extracts the path from a marker match, handling both the quoted
// and unquoted capture groups.
func markerPath(re *regexp.Regexp, match string) string {
	sub := re.FindStringSubmatch(match)
	if sub[1] != "" {
		return sub[1]
	}
	return strings.TrimSpace(sub[2])
}
