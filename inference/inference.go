// Package inference defines the boundary between the agent loop and a
// language-model service.
package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/deepagent/memory"
	"github.com/petasbytes/deepagent/tools"
)

// ContentType discriminates response items.
type ContentType string

const (
	ContentText    ContentType = "text"
	ContentToolUse ContentType = "tool_use"
)

// Request is one model call.
type Request struct {
	Model     string
	System    string
	Messages  []memory.Message
	Tools     []tools.Descriptor
	MaxTokens int64
}

// ContentItem is either a text segment or a tool invocation request.
type ContentItem struct {
	Type  ContentType     `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Text builds a text item.
func Text(s string) ContentItem { return ContentItem{Type: ContentText, Text: s} }

// ToolUse builds a tool invocation item. input is marshalled to JSON.
func ToolUse(id, name string, input any) ContentItem {
	var raw json.RawMessage
	switch v := input.(type) {
	case nil:
		raw = json.RawMessage("{}")
	case json.RawMessage:
		raw = v
	case string:
		raw = json.RawMessage(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("inference.ToolUse: %v", err))
		}
		raw = b
	}
	return ContentItem{Type: ContentToolUse, ID: id, Name: name, Input: raw}
}

// Usage reports token accounting when the provider supplies it.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the structured model reply.
type Response struct {
	Content    []ContentItem `json:"content"`
	StopReason string        `json:"stop_reason,omitempty"`
	Usage      Usage         `json:"usage"`
}

// HasToolUse reports whether any item requests a tool.
func (r *Response) HasToolUse() bool {
	for _, it := range r.Content {
		if it.Type == ContentToolUse {
			return true
		}
	}
	return false
}

// Client performs model calls. Implementations return *TransportError for
// any failure reaching or talking to the service.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// TransportError wraps a failed model call (network, auth, rate limit, bad
// response). It is fatal to the invocation that observed it.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s inference: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
