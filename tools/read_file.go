package tools

import (
	"strings"

	"github.com/petasbytes/deepagent/internal/fsops"
)

type ReadFileInput struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

const defaultReadFileLimit = 200 // fallback page size when limit <= 0
const truncationSentinel = "-- truncated; use offset/limit to fetch more --\n"
const maxLineRunes = 2000     // per-line clamp
const overallRuneCap = 12_000 // overall cap after join

// ReadFileDefinition reads paged file contents from the sandbox.
func ReadFileDefinition(sb *fsops.Sandbox) ToolDefinition {
	return ToolDefinition{
		Name:        "read_file",
		Description: "Read the contents of a file addressed by a relative file path within the workspace. Directory paths and unsafe paths are rejected.",
		Params: []Param{
			{Name: "path", Type: "string", Description: "Relative file path.", Required: true},
			{Name: "offset", Type: "integer", Description: "Line offset (0-based) to start reading from."},
			{Name: "limit", Type: "integer", Description: "Maximum lines to return from offset (default 200)."},
		},
		Function: Typed(func(_ *Context, in ReadFileInput) (any, error) {
			return readFile(sb, in)
		}),
	}
}

func clampRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", len([]rune(s)) > 0
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

// readFile applies small deterministic caps so results stay predictable for
// the token window:
//   - offset: 0-based starting line (negatives clamped to 0)
//   - limit: number of lines to return (<= 0 means 200)
//
// A trailing sentinel marks any truncation.
func readFile(sb *fsops.Sandbox, in ReadFileInput) (string, error) {
	content, err := sb.ReadFile(in.Path)
	if err != nil {
		return "", err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadFileLimit
	}
	offset := max(in.Offset, 0)

	lines := strings.Split(content, "\n")
	offset = min(offset, len(lines))
	end := offset + min(limit, len(lines)-offset)

	truncated := end < len(lines)
	for i := offset; i < end; i++ {
		if clamped, did := clampRunes(lines[i], maxLineRunes); did {
			lines[i] = clamped
			truncated = true
		}
	}

	out := strings.Join(lines[offset:end], "\n")
	if clamped, did := clampRunes(out, overallRuneCap); did {
		out = clamped
		truncated = true
	}

	if truncated {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += truncationSentinel
	}
	return out, nil
}
