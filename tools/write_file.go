package tools

import (
	"fmt"
	"unicode/utf8"

	"github.com/petasbytes/deepagent/internal/fsops"
)

type WriteFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileDefinition writes (or overwrites) a whole file in the sandbox.
func WriteFileDefinition(sb *fsops.Sandbox) ToolDefinition {
	return ToolDefinition{
		Name:        "write_file",
		Description: "Write content to a file addressed by a relative path within the workspace, replacing any existing content. Parent directories are created.",
		Params: []Param{
			{Name: "path", Type: "string", Description: "Target relative file path", Required: true},
			{Name: "content", Type: "string", Description: "Full file content", Required: true},
		},
		Function: Typed(func(_ *Context, in WriteFileInput) (any, error) {
			if in.Path == "" {
				return nil, fmt.Errorf("path is required")
			}
			if err := sb.WriteFile(in.Path, in.Content); err != nil {
				return nil, err
			}
			return fmt.Sprintf("Successfully wrote %d characters to %s", utf8.RuneCountInString(in.Content), in.Path), nil
		}),
	}
}

// FileTools returns the sandboxed file tools.
func FileTools(sb *fsops.Sandbox) []ToolDefinition {
	return []ToolDefinition{
		ReadFileDefinition(sb),
		ListFilesDefinition(sb),
		WriteFileDefinition(sb),
		EditFileDefinition(sb),
	}
}
