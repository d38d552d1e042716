package windowing_test

import (
	"github.com/petasbytes/deepagent/internal/windowing"
	"github.com/petasbytes/deepagent/memory"
)

// Assistant message constructor
func Asst(text string) memory.Message {
	return memory.Message{Role: memory.RoleAssistant, Content: text}
}

// User message constructor
func User(text string) memory.Message {
	return memory.Message{Role: memory.RoleUser, Content: text}
}

// groupsEqual is a small utility used by grouping tests.
func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
