package tools

import (
	"context"
	"fmt"
	"strings"
)

// AskUserName is the name of the built-in user-exchange tool.
const AskUserName = "ask_user"

// UserPrompter delivers a message to a human and returns their reply.
type UserPrompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// PromptFunc adapts a function to UserPrompter.
type PromptFunc func(ctx context.Context, message string) (string, error)

func (f PromptFunc) Prompt(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

type AskUserInput struct {
	Message string `json:"message"`
}

// AskUserDefinition returns the user-exchange tool backed by p. Its result is
// the user's reply.
func AskUserDefinition(p UserPrompter) ToolDefinition {
	return ToolDefinition{
		Name:        AskUserName,
		Description: "Ask the user a question or send them a message and wait for their reply.",
		Params: []Param{
			{Name: "message", Type: "string", Description: "What to say to the user", Required: true},
		},
		Kind: KindUserExchange,
		Function: Typed(func(tc *Context, in AskUserInput) (any, error) {
			if strings.TrimSpace(in.Message) == "" {
				return nil, fmt.Errorf("message must not be empty")
			}
			return p.Prompt(tc, in.Message)
		}),
	}
}
