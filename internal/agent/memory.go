package agent

import (
	"context"
	"sync"

	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// Memory stores conversation transcripts keyed by conversation id.
type Memory interface {
	Load(ctx context.Context, key string) ([]ai.Message, error)
	Append(ctx context.Context, key string, messages ...ai.Message) error
	Clear(ctx context.Context, key string) error
}

// InMemory keeps transcripts in process. A positive window bounds the number of
// messages retained per conversation.
type InMemory struct {
	mu     sync.Mutex
	window int
	data   map[string][]ai.Message
}

// NewInMemory constructs an in-process memory. An odd window is rounded down so
// that only whole user/assistant turns are kept.
func NewInMemory(window int) *InMemory {
	return &InMemory{window: turnWindow(window), data: make(map[string][]ai.Message)}
}

// turnWindow rounds a message window down to whole turns, keeping at least one.
func turnWindow(window int) int {
	if window <= 0 {
		return 0
	}
	if window < 2 {
		return 2
	}
	return window - window%2
}

// fromFirstUser drops messages preceding the first user message, so a
// transcript never opens with an orphaned assistant reply.
func fromFirstUser(messages []ai.Message) []ai.Message {
	for i, message := range messages {
		if message.Role == ai.RoleUser {
			return messages[i:]
		}
	}
	return messages[:0]
}

func (m *InMemory) Load(_ context.Context, key string) ([]ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := fromFirstUser(m.data[key])
	out := make([]ai.Message, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *InMemory) Append(_ context.Context, key string, messages ...ai.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := append(m.data[key], messages...)
	if m.window > 0 && len(stored) > m.window {
		stored = append([]ai.Message(nil), stored[len(stored)-m.window:]...)
	}
	m.data[key] = stored
	return nil
}

func (m *InMemory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
