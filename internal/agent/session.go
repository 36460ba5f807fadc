package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// ErrEmptyUtterance is returned when the user submits blank input.
var ErrEmptyUtterance = errors.New("query must not be empty")

// Session is one conversation: a runner bound to a profile and a transcript key.
type Session struct {
	runner  *Runner
	memory  Memory
	profile Profile
	key     string
	logger  zerolog.Logger
}

// NewSession binds a conversation. memory may be nil for stateless sessions.
func NewSession(runner *Runner, memory Memory, profile Profile, key string, logger zerolog.Logger) *Session {
	return &Session{
		runner:  runner,
		memory:  memory,
		profile: profile,
		key:     key,
		logger:  logger.With().Str("component", "agent_session").Str("profile", profile.Name).Logger(),
	}
}

// SessionKey derives the memory key for a user thread.
func SessionKey(userID, threadID string) string {
	userID = strings.TrimSpace(userID)
	threadID = strings.TrimSpace(threadID)
	if userID == "" {
		userID = "anonymous"
	}
	if threadID == "" {
		threadID = "default"
	}
	return userID + ":" + threadID
}

// Profile returns the profile the session runs under.
func (s *Session) Profile() Profile {
	return s.profile
}

// Ask runs a turn and records the user utterance and the reply in memory.
func (s *Session) Ask(ctx context.Context, utterance string) (Reply, error) {
	return s.ask(ctx, utterance, nil)
}

// AskStream runs a turn while forwarding model output to fn. The turn is
// recorded only once the stream has finished without error.
func (s *Session) AskStream(ctx context.Context, utterance string, fn ai.StreamFunc) (Reply, error) {
	return s.ask(ctx, utterance, fn)
}

func (s *Session) ask(ctx context.Context, utterance string, fn ai.StreamFunc) (Reply, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Reply{}, ErrEmptyUtterance
	}

	history, err := s.History(ctx)
	if err != nil {
		return Reply{}, err
	}

	var reply Reply
	if fn != nil {
		reply, err = s.runner.RunStream(ctx, s.profile, history, utterance, fn)
	} else {
		reply, err = s.runner.Run(ctx, s.profile, history, utterance)
	}
	if err != nil {
		s.logger.Error().Err(err).Int("steps", reply.Steps).Msg("agent turn failed")
		return reply, err
	}

	if s.memory != nil {
		if err := s.memory.Append(ctx, s.key,
			ai.Message{Role: ai.RoleUser, Content: utterance},
			ai.Message{Role: ai.RoleAssistant, Content: reply.Text},
		); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist conversation turn")
		}
	}

	s.logger.Info().Int("steps", reply.Steps).Int("tool_calls", len(reply.ToolCalls)).Msg("agent turn completed")
	return reply, nil
}

// History returns the stored transcript.
func (s *Session) History(ctx context.Context) ([]ai.Message, error) {
	if s.memory == nil {
		return nil, nil
	}
	return s.memory.Load(ctx, s.key)
}

// Reset clears the stored transcript.
func (s *Session) Reset(ctx context.Context) error {
	if s.memory == nil {
		return nil
	}
	return s.memory.Clear(ctx, s.key)
}
