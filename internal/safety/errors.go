// Package safety enforces the sandbox policy behind the built-in file tools.
package safety

import "encoding/json"

// Machine-readable error codes surfaced to the model.
const (
	CodeOutsideSandbox = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedRead     = "ERR_DENIED_READ"
	CodeDeniedWrite    = "ERR_DENIED_WRITE"
	CodeNotAFile       = "ERR_NOT_A_FILE"
)

// ToolError is a compact error body that the agent loop writes into the
// transcript verbatim, so the model can react to the code.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns single-line JSON.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Is matches another ToolError by code, so errors.Is(err, ToolError{Code: ...}) works.
func (e ToolError) Is(target error) bool {
	t, ok := target.(ToolError)
	return ok && t.Code == e.Code
}
