package tools

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var supportedTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

func normalizeType(t string) string {
	if supportedTypes[t] {
		return t
	}
	return "string"
}

// buildSchema derives the object schema for params, preserving declaration
// order and dropping the reserved state parameter. The returned params carry
// normalized types.
func buildSchema(params []Param) (*jsonschema.Schema, []Param) {
	props := orderedmap.New[string, *jsonschema.Schema]()
	required := []string{}
	kept := make([]Param, 0, len(params))

	for _, p := range params {
		if p.Name == StateParam || p.Name == "" {
			continue
		}
		p.Type = normalizeType(p.Type)
		prop := &jsonschema.Schema{Type: p.Type, Description: p.Description}
		if p.Type == "array" {
			items := "string"
			if p.Items != "" {
				items = normalizeType(p.Items)
			}
			p.Items = items
			prop.Items = &jsonschema.Schema{Type: items}
		}
		props.Set(p.Name, prop)
		if p.Required {
			required = append(required, p.Name)
		}
		kept = append(kept, p)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}, kept
}

// NewDescriptor builds the descriptor Register would store for the given
// declaration, without registering anything. The agent loop uses it for the
// sentinel tools it handles itself.
func NewDescriptor(name, description string, params []Param, kind Kind) Descriptor {
	schema, kept := buildSchema(params)
	return Descriptor{
		Name:        name,
		Description: description,
		Params:      kept,
		Kind:        kind,
		InputSchema: schema,
	}
}
