package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/config"
	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/service"
)

func TestBuildWiresEveryTool(t *testing.T) {
	cfg := config.Config{
		AppName:      "campus-test",
		DatabaseURL:  "file:app_build_test?mode=memory&cache=shared",
		AIProvider:   "openai",
		AIAPIKey:     "sk-test",
		AIMaxSteps:   4,
		MemoryWindow: 10,
		EventChannel: "campus",
	}

	application, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer application.Close()

	require.Len(t, application.Registry.Tools(), 13)
	require.NotNil(t, application.Runner)
	require.IsType(t, &agent.InMemory{}, application.Memory())

	result := application.Registry.Call(context.Background(), "get_total_students", json.RawMessage(`{}`))
	require.True(t, result.Success)
}

func TestBuildLoadsKnowledgeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campus.txt")
	require.NoError(t, os.WriteFile(path, []byte("The hostel curfew is 11 PM on weekdays."), 0o600))

	cfg := config.Config{
		DatabaseURL:   "file:app_knowledge_test?mode=memory&cache=shared",
		AIProvider:    "anthropic",
		AIAPIKey:      "sk-ant-test",
		KnowledgeFile: path,
	}

	application, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer application.Close()

	require.Len(t, application.Registry.Tools(), 14)
	result := application.Registry.Call(context.Background(), "retrieve_info", json.RawMessage(`{"query":"hostel curfew"}`))
	require.True(t, result.Success, result.Error)
	resp := result.Data.(dto.KnowledgeResponse)
	require.Equal(t, service.RankingKeyword, resp.Ranking)
	require.Contains(t, resp.Context, "11 PM")

	cfg.DatabaseURL = "file:app_knowledge_missing_test?mode=memory&cache=shared"
	cfg.KnowledgeFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = Build(context.Background(), cfg, zerolog.Nop())
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestBuildRejectsUnknownProvider(t *testing.T) {
	cfg := config.Config{
		DatabaseURL: "file:app_provider_test?mode=memory&cache=shared",
		AIProvider:  "llama",
		AIAPIKey:    "k",
	}

	_, err := Build(context.Background(), cfg, zerolog.Nop())
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	require.Equal(t, zerolog.InfoLevel, NewLogger(&buf, "bogus").GetLevel())
}
