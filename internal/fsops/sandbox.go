// Package fsops performs file operations confined to a sandbox.
package fsops

import "github.com/petasbytes/deepagent/internal/safety"

// Sandbox confines reads to ReadRoot and writes to WriteRoot.
type Sandbox struct {
	ReadRoot  string
	WriteRoot string
	Policy    safety.Policy
}

// New resolves the roots (see safety.ResolveRoots) and applies the default policy.
func New(readRoot, writeRoot string) (*Sandbox, error) {
	r, w, err := safety.ResolveRoots(readRoot, writeRoot)
	if err != nil {
		return nil, err
	}
	return &Sandbox{ReadRoot: r, WriteRoot: w, Policy: safety.DefaultPolicy()}, nil
}
