package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type entry struct {
	desc      Descriptor
	fn        Func
	validator *gojsonschema.Schema
}

// Registry maps tool names to callables and their descriptors. Safe for
// concurrent use. Re-registering a name replaces the previous tool.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*entry)}
}

// Register builds the descriptor and validator for def and stores it,
// overwriting any tool with the same name.
func (r *Registry) Register(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if def.Function == nil {
		return fmt.Errorf("register tool %s: nil function", def.Name)
	}
	desc := NewDescriptor(def.Name, def.Description, def.Params, def.Kind)

	raw, err := json.Marshal(desc.InputSchema)
	if err != nil {
		return fmt.Errorf("register tool %s: marshal schema: %w", def.Name, err)
	}
	validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("register tool %s: compile schema: %w", def.Name, err)
	}

	e := &entry{
		desc:      desc,
		fn:        def.Function,
		validator: validator,
	}
	r.mu.Lock()
	r.tools[def.Name] = e
	r.mu.Unlock()
	return nil
}

// MustRegister registers every definition and panics on error. Intended for
// wiring built-in tools at startup.
func (r *Registry) MustRegister(defs ...ToolDefinition) {
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Describe returns the descriptor for name.
func (r *Registry) Describe(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name}
	}
	return e.desc, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch validates input against the tool's schema and invokes it. Errors
// returned by the tool itself are passed through unchanged; a panic in the
// tool is returned as *PanicError.
func (r *Registry) Dispatch(tc *Context, name string, input json.RawMessage) (out any, err error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	input = bytes.TrimSpace(input)
	if len(input) == 0 || bytes.Equal(input, []byte("null")) {
		input = json.RawMessage("{}")
	}
	res, err := e.validator.Validate(gojsonschema.NewBytesLoader(input))
	if err != nil {
		return nil, &ValidationError{Tool: name, Problems: []string{err.Error()}}
	}
	if !res.Valid() {
		problems := make([]string, 0, len(res.Errors()))
		for _, re := range res.Errors() {
			problems = append(problems, re.String())
		}
		return nil, &ValidationError{Tool: name, Problems: problems}
	}
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, &PanicError{Tool: name, Value: rec}
		}
	}()
	return e.fn(tc, input)
}
