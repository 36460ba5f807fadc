package dto

// ToolDescriptor describes a registered tool for API clients.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Group       string                 `json:"group"`
	Parameters  map[string]interface{} `json:"parameters"`
}
