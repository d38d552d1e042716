package fsops

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/petasbytes/deepagent/internal/safety"
)

// ReadFile returns the contents of relPath under the read root.
func (s *Sandbox) ReadFile(relPath string) (string, error) {
	absPath, err := s.Policy.ValidateRead(s.ReadRoot, relPath)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}
	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ListFiles returns the sorted, non-recursive entries of relDir. Directories
// carry a trailing "/".
func (s *Sandbox) ListFiles(relDir string) ([]string, error) {
	if relDir == "" {
		relDir = "."
	}
	absDir, err := s.Policy.ValidateRead(s.ReadRoot, relDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// WriteFile writes content to relPath under the write root, creating parents.
func (s *Sandbox) WriteFile(relPath, content string) error {
	absPath, err := s.Policy.ValidateWrite(s.WriteRoot, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(absPath, []byte(content), 0o644)
}
