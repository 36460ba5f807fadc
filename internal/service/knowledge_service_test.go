package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

var (
	libraryParagraph   = strings.TrimSpace(strings.Repeat("The library opens at 8 AM on weekdays. ", 12))
	cafeteriaParagraph = strings.TrimSpace(strings.Repeat("The cafeteria serves lunch from noon. ", 12))
	sportsParagraph    = strings.TrimSpace(strings.Repeat("The sports complex hosts football matches. ", 12))
)

func writeKnowledgeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campus.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func campusKnowledge(t *testing.T) string {
	t.Helper()
	return writeKnowledgeFile(t, strings.Join([]string{libraryParagraph, cafeteriaParagraph, sportsParagraph}, "\n\n"))
}

// topicEmbedder places text on one axis per campus topic it mentions.
type topicEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *topicEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	vectors := make([][]float32, 0, len(inputs))
	for _, input := range inputs {
		vector := make([]float32, 3)
		for axis, topic := range []string{"library", "cafeteria", "sports"} {
			if strings.Contains(strings.ToLower(input), topic) {
				vector[axis] = 1
			}
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func TestSplitTextKeepsParagraphsTogether(t *testing.T) {
	text := strings.Join([]string{libraryParagraph, cafeteriaParagraph, sportsParagraph}, "\n\n")

	chunks := splitText(text, KnowledgeChunkSize, KnowledgeChunkOverlap, knowledgeSeparators)
	require.Equal(t, []string{libraryParagraph, cafeteriaParagraph, sportsParagraph}, chunks)

	require.Equal(t, []string{"short note"}, splitText("  short note \n", KnowledgeChunkSize, KnowledgeChunkOverlap, knowledgeSeparators))
	require.Empty(t, splitText("   ", KnowledgeChunkSize, KnowledgeChunkOverlap, knowledgeSeparators))
}

func TestSplitTextOverlapsUnbrokenText(t *testing.T) {
	text := strings.Repeat("0123456789", 200)

	chunks := splitText(text, KnowledgeChunkSize, KnowledgeChunkOverlap, knowledgeSeparators)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(chunk), KnowledgeChunkSize)
	}
	require.Equal(t, chunks[0][700:], chunks[1][:100])
	require.Equal(t, chunks[1][700:], chunks[2][:100])
	require.Equal(t, text[1400:], chunks[2])
}

func TestKnowledgeServiceKeywordRanking(t *testing.T) {
	svc, err := NewKnowledgeService(campusKnowledge(t), nil, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := svc.Retrieve(ctx, "  What are the library hours? ")
	require.NoError(t, err)
	require.True(t, resp.Found)
	require.Equal(t, RankingKeyword, resp.Ranking)
	require.Equal(t, "What are the library hours?", resp.Query)
	require.Contains(t, resp.Context, "library opens at 8 AM")
	require.NotContains(t, resp.Context, "cafeteria")

	resp, err = svc.Retrieve(ctx, "parking permits")
	require.NoError(t, err)
	require.False(t, resp.Found)
	require.Equal(t, NoRelevantInfo, resp.Context)

	_, err = svc.Retrieve(ctx, " ")
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, CodeValidationError, ErrorCode(err))
}

func TestKnowledgeServiceEmbeddingRanking(t *testing.T) {
	embedder := &topicEmbedder{}
	svc, err := NewKnowledgeService(campusKnowledge(t), embedder, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := svc.Retrieve(ctx, "is the cafeteria open for lunch")
	require.NoError(t, err)
	require.True(t, resp.Found)
	require.Equal(t, RankingEmbedding, resp.Ranking)
	passages := strings.Split(resp.Context, "\n\n")
	require.Len(t, passages, KnowledgeTopK)
	require.Equal(t, cafeteriaParagraph, passages[0])

	_, err = svc.Retrieve(ctx, "sports")
	require.NoError(t, err)
	require.Equal(t, 3, embedder.calls)
}

func TestKnowledgeServiceFallsBackWhenEmbeddingsFail(t *testing.T) {
	embedder := &topicEmbedder{err: errors.New("quota exceeded")}
	svc, err := NewKnowledgeService(campusKnowledge(t), embedder, testLogger())
	require.NoError(t, err)

	resp, err := svc.Retrieve(context.Background(), "football matches")
	require.NoError(t, err)
	require.Equal(t, RankingKeyword, resp.Ranking)
	require.Equal(t, sportsParagraph, resp.Context)
}

func TestKnowledgeServiceEmptyAndMissingFiles(t *testing.T) {
	svc, err := NewKnowledgeService(writeKnowledgeFile(t, ""), &topicEmbedder{}, testLogger())
	require.NoError(t, err)

	resp, err := svc.Retrieve(context.Background(), "library")
	require.NoError(t, err)
	require.False(t, resp.Found)
	require.Equal(t, NoRelevantInfo, resp.Context)

	_, err = NewKnowledgeService(filepath.Join(t.TempDir(), "missing.txt"), nil, testLogger())
	require.Error(t, err)
}
