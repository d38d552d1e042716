package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Policy lists what the sandbox refuses beyond the root boundary itself.
type Policy struct {
	// DenyDirs are top-level directories that can be neither read nor written.
	DenyDirs []string
	// DenyWriteNames are base names that cannot be written at any depth.
	DenyWriteNames []string
}

// DefaultPolicy protects VCS metadata, the runtime's own state dir and module files.
func DefaultPolicy() Policy {
	return Policy{
		DenyDirs:       []string{".git", ".agent"},
		DenyWriteNames: []string{"go.mod", "go.sum"},
	}
}

// ResolveRoots turns the configured roots into absolute, symlink-resolved
// paths. An empty read root means the working directory; an empty write root
// means the read root.
func ResolveRoots(readRoot, writeRoot string) (absRead, absWrite string, err error) {
	if readRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("getwd: %w", err)
		}
		readRoot = cwd
	}
	if writeRoot == "" {
		writeRoot = readRoot
	}
	if absRead, err = resolveDir(readRoot); err != nil {
		return "", "", fmt.Errorf("read root: %w", err)
	}
	if absWrite, err = resolveDir(writeRoot); err != nil {
		return "", "", fmt.Errorf("write root: %w", err)
	}
	return absRead, absWrite, nil
}

func resolveDir(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	// Non-existent roots are kept as-is.
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateRead resolves relPath under absRoot for reading.
func (p Policy) ValidateRead(absRoot, relPath string) (string, error) {
	abs, rel, err := confine(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if p.underDeniedDir(rel) {
		return "", ToolError{Code: CodeDeniedRead, Message: "reads under " + strings.Join(p.DenyDirs, ", ") + " are not allowed"}
	}
	return abs, nil
}

// ValidateWrite resolves relPath under absRoot for writing.
func (p Policy) ValidateWrite(absRoot, relPath string) (string, error) {
	abs, rel, err := confine(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", ToolError{Code: CodeDeniedWrite, Message: "cannot write to the sandbox root"}
	}
	if p.underDeniedDir(rel) {
		return "", ToolError{Code: CodeDeniedWrite, Message: "writes under " + strings.Join(p.DenyDirs, ", ") + " are not allowed"}
	}
	base := filepath.Base(rel)
	for _, n := range p.DenyWriteNames {
		if base == n {
			return "", ToolError{Code: CodeDeniedWrite, Message: "writes to " + n + " are not allowed"}
		}
	}
	return abs, nil
}

func (p Policy) underDeniedDir(rel string) bool {
	slashed := filepath.ToSlash(rel)
	for _, d := range p.DenyDirs {
		if slashed == d || strings.HasPrefix(slashed, d+"/") {
			return true
		}
	}
	return false
}

// confine joins relPath onto absRoot and rejects anything that escapes it,
// including escapes through symlinked ancestors of not-yet-existing leaves.
// It returns the absolute candidate and its path relative to the root.
func confine(absRoot, relPath string) (string, string, error) {
	if filepath.IsAbs(relPath) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}
	candidate := filepath.Join(absRoot, filepath.Clean(relPath))

	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := resolveExistingAncestor(filepath.Dir(candidate)); err == nil {
		tail, _ := filepath.Rel(filepath.Dir(candidate), candidate)
		candidate = filepath.Join(parent, tail)
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "requested path resolves outside the sandbox root"}
	}
	return candidate, rel, nil
}

// resolveExistingAncestor walks up from dir to the nearest existing directory,
// resolves its symlinks and re-appends the missing components.
func resolveExistingAncestor(dir string) (string, error) {
	var missing []string
	cur := dir
	for {
		if r, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				r = filepath.Join(r, missing[i])
			}
			return r, nil
		}
		next := filepath.Dir(cur)
		if next == cur {
			return "", fmt.Errorf("no existing ancestor for %s", dir)
		}
		missing = append(missing, filepath.Base(cur))
		cur = next
	}
}
