package dto

// ChatRequest is a natural-language query sent to the assistant.
type ChatRequest struct {
	Query    string `json:"query" validate:"required,max=4000"`
	UserID   string `json:"user_id" validate:"omitempty,max=64"`
	ThreadID string `json:"thread_id" validate:"omitempty,max=64"`
}

// ChatResponse carries the assistant's final answer.
type ChatResponse struct {
	Response string   `json:"response"`
	ThreadID string   `json:"thread_id,omitempty"`
	Tools    []string `json:"tools,omitempty"`
}

// ChatTurn is a single transcript entry.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatHistoryResponse lists the transcript of a conversation thread.
type ChatHistoryResponse struct {
	ThreadID string     `json:"thread_id"`
	Turns    []ChatTurn `json:"turns"`
}

// ChatDelta is one streamed fragment of an assistant answer.
type ChatDelta struct {
	Delta string `json:"delta"`
}
