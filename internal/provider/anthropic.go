package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/deepagent/inference"
	"github.com/petasbytes/deepagent/memory"
	"github.com/petasbytes/deepagent/tools"
)

const (
	DefaultModel     = anthropic.ModelClaude3_7SonnetLatest
	DefaultMaxTokens = int64(4000)
)

// NewAnthropicClient returns a client using API key from the env.
func NewAnthropicClient() *anthropic.Client {
	c := anthropic.NewClient()
	return &c
}

// Anthropic implements inference.Client over the Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// AnthropicOptions configures an Anthropic adapter.
type AnthropicOptions struct {
	Model     string
	MaxTokens int64
}

// NewAnthropic wraps client. A nil client is built from the environment.
func NewAnthropic(client *anthropic.Client, optFns ...func(o *AnthropicOptions)) *Anthropic {
	opts := AnthropicOptions{
		Model:     string(DefaultModel),
		MaxTokens: DefaultMaxTokens,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if client == nil {
		client = NewAnthropicClient()
	}
	return &Anthropic{
		client:    client,
		model:     anthropic.Model(opts.Model),
		maxTokens: opts.MaxTokens,
	}
}

// Complete sends one Messages.New request built from req.
func (a *Anthropic) Complete(ctx context.Context, req inference.Request) (*inference.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  anthropicMessages(req.Messages),
	}
	if req.Model != "" {
		params.Model = anthropic.Model(req.Model)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropicTools(req.Tools)
	}
	if len(params.Messages) == 0 {
		return nil, &inference.TransportError{Provider: "anthropic", Err: errors.New("no messages to send")}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &inference.TransportError{Provider: "anthropic", Err: err}
	}

	out := &inference.Response{
		StopReason: string(msg.StopReason),
		Usage: inference.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content = append(out.Content, inference.Text(v.Text))
		case anthropic.ToolUseBlock:
			input := json.RawMessage(v.JSON.Input.Raw())
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			out.Content = append(out.Content, inference.ContentItem{
				Type:  inference.ContentToolUse,
				ID:    v.ID,
				Name:  v.Name,
				Input: input,
			})
		}
	}
	return out, nil
}

// anthropicMessages merges runs of same-role messages into one message with
// several text blocks; the API requires alternating roles. Empty contents
// are dropped.
func anthropicMessages(msgs []memory.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var blocks []anthropic.ContentBlockParamUnion
	var role memory.Role

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if role == memory.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
		blocks = nil
	}

	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		if m.Role != role {
			flush()
			role = m.Role
		}
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}
	flush()
	return out
}

func anthropicTools(descs []tools.Descriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(descs))
	for _, d := range descs {
		schema := anthropic.ToolInputSchemaParam{Required: d.Required()}
		if d.InputSchema != nil && d.InputSchema.Properties != nil {
			schema.Properties = d.InputSchema.Properties
		} else {
			schema.Properties = map[string]any{}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: schema,
		}})
	}
	return out
}
