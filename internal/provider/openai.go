package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/petasbytes/deepagent/inference"
	"github.com/petasbytes/deepagent/memory"
	"github.com/petasbytes/deepagent/tools"
)

const DefaultOpenAIModel = openai.ChatModelGPT4oMini

// OpenAI implements inference.Client over the Chat Completions API.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int64
}

// OpenAIOptions configures an OpenAI adapter.
type OpenAIOptions struct {
	Model     string
	MaxTokens int64
}

// NewOpenAI wraps client. A nil client reads OPENAI_API_KEY from the env.
func NewOpenAI(client *openai.Client, optFns ...func(o *OpenAIOptions)) *OpenAI {
	opts := OpenAIOptions{
		Model:     DefaultOpenAIModel,
		MaxTokens: DefaultMaxTokens,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if client == nil {
		c := openai.NewClient()
		client = &c
	}
	return &OpenAI{client: client, model: opts.Model, maxTokens: opts.MaxTokens}
}

// Complete sends one chat completion built from req and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, req inference.Request) (*inference.Response, error) {
	model := o.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := o.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            openAIMessages(req.System, req.Messages),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
	if len(req.Tools) > 0 {
		defs, err := openAITools(req.Tools)
		if err != nil {
			return nil, &inference.TransportError{Provider: "openai", Err: err}
		}
		params.Tools = defs
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &inference.TransportError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &inference.TransportError{Provider: "openai", Err: errors.New("no choices returned")}
	}

	ch0 := resp.Choices[0]
	out := &inference.Response{
		StopReason: ch0.FinishReason,
		Usage: inference.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if ch0.Message.Content != "" {
		out.Content = append(out.Content, inference.Text(ch0.Message.Content))
	}
	for _, tc := range ch0.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		out.Content = append(out.Content, inference.ContentItem{
			Type:  inference.ContentToolUse,
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(args),
		})
	}
	return out, nil
}

func openAIMessages(system string, msgs []memory.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		if m.Role == memory.RoleAssistant {
			out = append(out, openai.AssistantMessage(m.Content))
		} else {
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func openAITools(descs []tools.Descriptor) ([]openai.ChatCompletionToolParam, error) {
	out := make([]openai.ChatCompletionToolParam, 0, len(descs))
	for _, d := range descs {
		params := map[string]any{"type": "object", "properties": map[string]any{}}
		if d.InputSchema != nil {
			raw, err := json.Marshal(d.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("marshal schema for %s: %w", d.Name, err)
			}
			params = map[string]any{}
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, fmt.Errorf("decode schema for %s: %w", d.Name, err)
			}
		}
		out = append(out, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  params,
			},
		})
	}
	return out, nil
}
