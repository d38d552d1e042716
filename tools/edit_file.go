package tools

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/petasbytes/deepagent/internal/fsops"
)

type EditFileInput struct {
	Path   string `json:"path"`
	OldStr string `json:"old_str"`
	NewStr string `json:"new_str"`
	// ReplaceAll replaces every occurrence; otherwise old_str must be unique.
	ReplaceAll bool `json:"replace_all,omitempty"`
}

// EditFileDefinition creates a file or replaces text inside one.
func EditFileDefinition(sb *fsops.Sandbox) ToolDefinition {
	return ToolDefinition{
		Name: "edit_file",
		Description: `Create or modify a text file addressed by a relative path within the workspace.

When old_str is empty and the file doesn't exist, a new file is created.

When editing an existing file, old_str is replaced with new_str; old_str and new_str must be different.
old_str must occur exactly once unless replace_all is true, in which case every occurrence is replaced.
`,
		Params: []Param{
			{Name: "path", Type: "string", Description: "Target relative file path", Required: true},
			{Name: "old_str", Type: "string", Description: "Exact text to replace; must be present when editing an existing file."},
			{Name: "new_str", Type: "string", Description: "New text to write or replace old_str with", Required: true},
			{Name: "replace_all", Type: "boolean", Description: "Replace every occurrence of old_str (default false)."},
		},
		Function: Typed(func(_ *Context, in EditFileInput) (any, error) {
			return editFile(sb, in)
		}),
	}
}

func editFile(sb *fsops.Sandbox, in EditFileInput) (string, error) {
	if in.Path == "" || in.OldStr == in.NewStr {
		return "", fmt.Errorf("invalid edit parameters")
	}

	oldContent, readErr := sb.ReadFile(in.Path)
	if readErr != nil {
		if in.OldStr == "" && errors.Is(readErr, os.ErrNotExist) {
			if err := sb.WriteFile(in.Path, in.NewStr); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully created file %s", in.Path), nil
		}
		return "", readErr
	}

	if in.OldStr == "" {
		return "", fmt.Errorf("old_str must be provided when editing an existing file")
	}
	n := strings.Count(oldContent, in.OldStr)
	switch {
	case n == 0:
		return "", fmt.Errorf("old_str not found in file")
	case n > 1 && !in.ReplaceAll:
		return "", fmt.Errorf("old_str appears %d times in file; add surrounding context to make it unique or set replace_all", n)
	}
	newContent := strings.Replace(oldContent, in.OldStr, in.NewStr, n)
	if err := sb.WriteFile(in.Path, newContent); err != nil {
		return "", err
	}
	return "OK", nil
}
