package tools

import "encoding/json"

type WriteTodosInput struct {
	Todos []map[string]any `json:"todos"`
}

// WriteTodosDefinition lets the model record a plan. The list is echoed back
// so it lands in the transcript.
var WriteTodosDefinition = ToolDefinition{
	Name:        "write_todos",
	Description: "Create and manage todos. Pass the full current list; each item is an object such as {\"content\": \"...\", \"status\": \"pending\"}.",
	Params: []Param{
		{Name: "todos", Type: "array", Items: "object", Description: "The complete todo list", Required: true},
	},
	Function: func(_ *Context, input json.RawMessage) (any, error) {
		var in WriteTodosInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, err
		}
		if in.Todos == nil {
			in.Todos = []map[string]any{}
		}
		return map[string]any{"todos": in.Todos}, nil
	},
}
