package tools

import (
	"fmt"

	"github.com/petasbytes/deepagent/memory"
)

type SearchConversationInput struct {
	Query string `json:"query"`
}

// SearchHit is one search_conversation result.
type SearchHit struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

const maxSearchHits = 20

// SearchConversationDefinition searches the shared session. It fails when the
// backing store cannot search.
var SearchConversationDefinition = ToolDefinition{
	Name:        "search_conversation",
	Description: "Search earlier turns of this conversation for a phrase (case-insensitive). Returns the most recent matches.",
	Params: []Param{
		{Name: "query", Type: "string", Description: "Text to look for", Required: true},
	},
	Function: Typed(func(tc *Context, in SearchConversationInput) (any, error) {
		if tc == nil || tc.Session == nil {
			return nil, fmt.Errorf("no conversation session available")
		}
		turns, err := tc.Session.Search(tc, in.Query)
		if err != nil {
			return nil, err
		}
		return toHits(turns), nil
	}),
}

func toHits(turns []memory.Turn) []SearchHit {
	if len(turns) > maxSearchHits {
		turns = turns[len(turns)-maxSearchHits:]
	}
	hits := make([]SearchHit, 0, len(turns))
	for _, t := range turns {
		hits = append(hits, SearchHit{Speaker: t.Speaker, Content: t.Content})
	}
	return hits
}
