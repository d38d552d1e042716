// Package telemetry emits structured JSONL events describing agent runs.
// Events never carry raw prompt, completion or tool payloads.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Emitter records named events.
type Emitter interface {
	Emit(name string, fields map[string]any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(string, map[string]any) {}

// JSONL appends one JSON object per event to a file.
type JSONL struct {
	path   string
	errOut io.Writer
	mu     sync.Mutex
}

// NewJSONL returns an emitter writing to dir/events.jsonl. The directory is
// created on first emit.
func NewJSONL(dir string) *JSONL {
	return &JSONL{path: filepath.Join(dir, "events.jsonl"), errOut: os.Stderr}
}

// Path returns the events file location.
func (j *JSONL) Path() string { return j.path }

// Emit augments fields with RFC3339Nano time and the event name. Failures are
// reported to stderr and otherwise ignored.
func (j *JSONL) Emit(name string, fields map[string]any) {
	// Shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		fmt.Fprintf(j.errOut, "telemetry: marshal: %v\n", err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		fmt.Fprintf(j.errOut, "telemetry: mkdir: %v\n", err)
		return
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(j.errOut, "telemetry: open %s: %v\n", j.path, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		fmt.Fprintf(j.errOut, "telemetry: write %s: %v\n", j.path, err)
	}
}

// FromEnv returns a JSONL emitter when AGT_OBSERVE_JSON=1 and Nop otherwise.
// The directory is AGT_ARTIFACTS_DIR, defaulting to .agent.
func FromEnv() Emitter {
	if os.Getenv("AGT_OBSERVE_JSON") != "1" {
		return Nop{}
	}
	dir := os.Getenv("AGT_ARTIFACTS_DIR")
	if dir == "" {
		dir = ".agent"
	}
	return NewJSONL(dir)
}
