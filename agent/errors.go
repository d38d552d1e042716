package agent

import (
	"fmt"
	"strings"
)

// ToolExecutionError wraps a failed tool call. Its message is what the loop
// records in the transcript.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("Error executing %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// UnknownSubagentError reports a delegation to a name missing from the
// subagent table. It is logged, never recorded.
type UnknownSubagentError struct {
	Name      string
	Available []string
}

func (e *UnknownSubagentError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown subagent %q", e.Name)
	}
	return fmt.Sprintf("unknown subagent %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// ProtocolViolationError reports a sentinel tool call the agent was not offered.
type ProtocolViolationError struct {
	Agent  string
	Tool   string
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: %s called %s: %s", e.Agent, e.Tool, e.Reason)
}
