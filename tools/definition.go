package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/petasbytes/deepagent/memory"
)

// Kind distinguishes ordinary tools from the designated user-communication tool.
type Kind int

const (
	// KindFunction results are recorded as a tool-caller turn.
	KindFunction Kind = iota
	// KindUserExchange models a synchronous human round-trip: the outgoing
	// message is recorded under the agent, the reply under the user.
	KindUserExchange
)

func (k Kind) String() string {
	switch k {
	case KindUserExchange:
		return "user_exchange"
	default:
		return "function"
	}
}

// StateParam is the reserved parameter name for ambient context; it never
// appears in a generated schema.
const StateParam = "state"

// Param declares one tool argument.
type Param struct {
	Name        string
	Type        string // string, integer, number, boolean, array, object; anything else is treated as string
	Description string
	Required    bool
	Items       string // element type for arrays
}

// Context is passed to every tool invocation.
type Context struct {
	context.Context
	AgentName string
	Session   *memory.Session
}

// Func is the callable behind a tool. input is the raw JSON argument object.
type Func func(tc *Context, input json.RawMessage) (any, error)

// ToolDefinition is what callers register.
type ToolDefinition struct {
	Name        string
	Description string
	Params      []Param
	Kind        Kind
	Function    Func
}

// Descriptor is the immutable, registered view of a tool.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
	Kind        Kind
	InputSchema *jsonschema.Schema
}

// Required lists the names of required parameters in declaration order.
func (d Descriptor) Required() []string {
	if d.InputSchema == nil {
		return nil
	}
	return d.InputSchema.Required
}

// Typed adapts a function over a typed argument struct into a Func.
func Typed[T any](fn func(tc *Context, in T) (any, error)) Func {
	return func(tc *Context, input json.RawMessage) (any, error) {
		var in T
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
		}
		return fn(tc, in)
	}
}
