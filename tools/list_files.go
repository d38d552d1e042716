package tools

import (
	"github.com/petasbytes/deepagent/internal/fsops"
)

type ListFilesInput struct {
	Path     string `json:"path,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// defaultListFilesPageSize is the fallback page size when page_size <= 0.
const defaultListFilesPageSize = 200

// ListFilesDefinition lists one sandbox directory, paged.
func ListFilesDefinition(sb *fsops.Sandbox) ToolDefinition {
	return ToolDefinition{
		Name:        "list_files",
		Description: "List names of files in a directory within the workspace (non-recursive). Directories end with '/'.",
		Params: []Param{
			{Name: "path", Type: "string", Description: "Optional relative path to list files from (defaults to the workspace root)."},
			{Name: "page", Type: "integer", Description: "1-based page number (default 1)."},
			{Name: "page_size", Type: "integer", Description: "Page size (default 200)."},
		},
		Function: Typed(func(_ *Context, in ListFilesInput) (any, error) {
			return listFiles(sb, in)
		}),
	}
}

// listFiles returns a []string page; an out-of-range page is an empty list.
func listFiles(sb *fsops.Sandbox, in ListFilesInput) ([]string, error) {
	page := in.Page
	if page <= 0 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultListFilesPageSize
	}

	names, err := sb.ListFiles(in.Path)
	if err != nil {
		return nil, err
	}
	if page-1 > len(names)/pageSize {
		return []string{}, nil
	}
	start := (page - 1) * pageSize
	if start >= len(names) {
		return []string{}, nil
	}
	end := start + min(pageSize, len(names)-start)
	return names[start:end], nil
}
