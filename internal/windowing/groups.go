package windowing

import "github.com/petasbytes/deepagent/memory"

// Group is a contiguous span [Start, End) of same-role messages.
type Group struct {
	Role  memory.Role
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupMessages splits msgs into maximal same-role runs, oldest first.
func GroupMessages(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		j := i + 1
		for j < len(msgs) && msgs[j].Role == msgs[i].Role {
			j++
		}
		groups = append(groups, Group{Role: msgs[i].Role, Start: i, End: j})
		i = j
	}
	return groups
}
