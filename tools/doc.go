// Package tools defines the tool registry and the built-in tools.
//
// Includes:
//   - Registry: explicit name → tool table with schema validation and dispatch.
//   - ToolDefinition / Param: explicit descriptor builders (no reflection).
//   - Context: ambient execution context handed to every tool.
//   - File tools over an fsops.Sandbox: read_file, list_files (non-recursive), write_file, edit_file.
//   - write_todos, ask_user (user-exchange kind) and search_conversation.
//
// The loop-owned sentinels (complete_task, invoke_subagent) are not registry entries.
package tools
