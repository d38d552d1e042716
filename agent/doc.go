// Package agent runs the bounded model/tool loop.
//
// An Agent alternates inference calls with tool dispatch over a shared
// memory.Session until the model calls complete_task, answers without
// requesting any tool, or the iteration cap runs out. Agents may delegate to
// subagents through invoke_subagent; a subagent runs synchronously on the
// same session and its answer reaches the parent only through the transcript.
package agent
