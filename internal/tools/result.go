package tools

import "encoding/json"

// Result is the envelope every tool returns to the agent runtime.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK wraps a successful payload.
func OK(data interface{}) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failure envelope with its taxonomy code.
func Fail(code, message string) Result {
	return Result{Success: false, Error: message, Code: code}
}

// JSON renders the envelope for the model. Encoding failures degrade to a
// failure envelope rather than an empty string.
func (r Result) JSON() string {
	payload, err := json.Marshal(r)
	if err != nil {
		fallback, _ := json.Marshal(Fail("InternalError", "failed to encode tool result"))
		return string(fallback)
	}
	return string(payload)
}
