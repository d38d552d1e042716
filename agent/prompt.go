package agent

import (
	"fmt"
	"strings"

	"github.com/petasbytes/deepagent/tools"
)

const (
	CompleteTaskName   = "complete_task"
	InvokeSubagentName = "invoke_subagent"
)

var (
	completeTaskDescriptor = tools.NewDescriptor(
		CompleteTaskName,
		"Finish the task and hand the final result back to the user.",
		[]tools.Param{
			{Name: "result", Type: "string", Description: "The final answer or a summary of the work done", Required: true},
		},
		tools.KindFunction,
	)

	invokeSubagentDescriptor = tools.NewDescriptor(
		InvokeSubagentName,
		"Delegate a sub-task to one of the available subagents. Its answer appears in the conversation when it finishes.",
		[]tools.Param{
			{Name: "subagent_name", Type: "string", Description: "Name of the subagent to run", Required: true},
			{Name: "prompt", Type: "string", Description: "Instructions for the subagent", Required: true},
		},
		tools.KindFunction,
	)
)

const (
	topLevelDirective = "When the task is finished, call " + CompleteTaskName + " with the final result."
	subagentDirective = "Once you have gathered enough information, stop calling tools and answer directly. Your answer is returned to the agent that delegated to you."
)

// subagentInstructions prefixes a subagent's own instructions with its role.
func subagentInstructions(spec SubAgent, parent string) string {
	preamble := fmt.Sprintf("You are %q, a subagent working on a task delegated by %q.", spec.Name, parent)
	if spec.Instructions == "" {
		return preamble
	}
	return spec.Instructions + "\n\n" + preamble
}

// buildSystemPrompt concatenates instructions, the tool listing, the subagent
// listing and the closing directive for the agent's role.
func buildSystemPrompt(instructions string, descs []tools.Descriptor, subs []SubAgent, isSubagent bool) string {
	var sections []string
	if instructions != "" {
		sections = append(sections, instructions)
	}

	if len(descs) > 0 {
		var b strings.Builder
		b.WriteString("You have access to the following tools:")
		for _, d := range descs {
			fmt.Fprintf(&b, "\n- %s: %s", d.Name, d.Description)
		}
		sections = append(sections, b.String())
	}

	if len(subs) > 0 {
		var b strings.Builder
		b.WriteString("You can delegate to these subagents with " + InvokeSubagentName + ":")
		for _, s := range subs {
			fmt.Fprintf(&b, "\n- %s: %s", s.Name, s.Description)
		}
		sections = append(sections, b.String())
	}

	if isSubagent {
		sections = append(sections, subagentDirective)
	} else {
		sections = append(sections, topLevelDirective)
	}
	return strings.Join(sections, "\n\n")
}
