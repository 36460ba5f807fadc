package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
)

// Retrieval tuning for the campus knowledge file.
const (
	KnowledgeChunkSize    = 800
	KnowledgeChunkOverlap = 100
	KnowledgeTopK         = 3
	embedBatchSize        = 100
)

// NoRelevantInfo is the context returned when nothing in the knowledge file matches.
const NoRelevantInfo = "No relevant info found."

// Ranking methods reported with retrieval results.
const (
	RankingEmbedding = "embedding"
	RankingKeyword   = "keyword"
)

var knowledgeSeparators = []string{"\n\n", "\n", ".", " "}

var stopWords = map[string]bool{
	"about": true, "all": true, "and": true, "any": true, "are": true, "can": true,
	"does": true, "for": true, "from": true, "has": true, "have": true, "how": true,
	"into": true, "its": true, "our": true, "please": true, "tell": true, "that": true,
	"the": true, "their": true, "there": true, "this": true, "was": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "who": true, "will": true,
	"with": true, "you": true, "your": true,
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// KnowledgeService answers free-form campus questions from a local text file.
type KnowledgeService interface {
	Retrieve(ctx context.Context, query string) (dto.KnowledgeResponse, error)
}

type knowledgeService struct {
	chunks   []string
	embedder Embedder
	logger   zerolog.Logger

	mu      sync.Mutex
	vectors [][]float32
}

// NewKnowledgeService loads and chunks the knowledge file at path. Chunks are
// embedded on first use when an embedder is given; without one, or when the
// embeddings call fails, passages are ranked by keyword overlap.
func NewKnowledgeService(path string, embedder Embedder, logger zerolog.Logger) (KnowledgeService, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}

	chunks := splitText(string(raw), KnowledgeChunkSize, KnowledgeChunkOverlap, knowledgeSeparators)
	logger = logger.With().Str("component", "knowledge_service").Logger()
	logger.Info().Str("path", path).Int("chunks", len(chunks)).Bool("embeddings", embedder != nil).Msg("knowledge file loaded")

	return &knowledgeService{chunks: chunks, embedder: embedder, logger: logger}, nil
}

func (s *knowledgeService) Retrieve(ctx context.Context, query string) (dto.KnowledgeResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return dto.KnowledgeResponse{}, fmt.Errorf("%w: query is required", ErrValidation)
	}

	passages, ranking := s.rank(ctx, query)
	resp := dto.KnowledgeResponse{Query: query, Context: NoRelevantInfo, Ranking: ranking}
	if len(passages) > 0 {
		resp.Found = true
		resp.Context = strings.Join(passages, "\n\n")
	}
	return resp, nil
}

func (s *knowledgeService) rank(ctx context.Context, query string) ([]string, string) {
	if len(s.chunks) == 0 {
		return nil, RankingKeyword
	}
	if s.embedder != nil {
		passages, err := s.rankByEmbedding(ctx, query)
		if err == nil {
			return passages, RankingEmbedding
		}
		s.logger.Warn().Err(err).Msg("embedding ranking failed, using keyword ranking")
	}
	return s.rankByKeyword(query), RankingKeyword
}

func (s *knowledgeService) rankByEmbedding(ctx context.Context, query string) ([]string, error) {
	vectors, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	embedded, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embedded) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(embedded))
	}

	scores := make([]float64, len(s.chunks))
	for i, vector := range vectors {
		scores[i] = cosine(embedded[0], vector)
	}
	return s.top(scores, math.Inf(-1)), nil
}

// index embeds every chunk once. A failed attempt is retried on the next call.
func (s *knowledgeService) index(ctx context.Context) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectors != nil {
		return s.vectors, nil
	}

	vectors := make([][]float32, 0, len(s.chunks))
	for start := 0; start < len(s.chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(s.chunks) {
			end = len(s.chunks)
		}
		batch, err := s.embedder.Embed(ctx, s.chunks[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("expected %d chunk vectors, got %d", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	s.vectors = vectors
	s.logger.Debug().Int("chunks", len(vectors)).Msg("knowledge chunks embedded")
	return vectors, nil
}

func (s *knowledgeService) rankByKeyword(query string) []string {
	terms := keywords(query)
	if len(terms) == 0 {
		return nil
	}

	scores := make([]float64, len(s.chunks))
	for i, chunk := range s.chunks {
		words := keywords(chunk)
		present := make(map[string]bool, len(words))
		for _, word := range words {
			present[word] = true
		}
		for _, term := range terms {
			if present[term] {
				scores[i]++
			}
		}
	}
	return s.top(scores, 0)
}

// top returns up to KnowledgeTopK chunks scoring above floor, best first.
func (s *knowledgeService) top(scores []float64, floor float64) []string {
	order := make([]int, 0, len(scores))
	for i, score := range scores {
		if score > floor {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if len(order) > KnowledgeTopK {
		order = order[:KnowledgeTopK]
	}

	passages := make([]string, 0, len(order))
	for _, i := range order {
		passages = append(passages, s.chunks[i])
	}
	return passages
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, field := range fields {
		if utf8.RuneCountInString(field) >= 3 && !stopWords[field] {
			out = append(out, field)
		}
	}
	return out
}

// splitText cuts text into chunks of at most size runes, preferring the earliest
// separator that occurs and recursing into pieces that are still too long.
// Neighbouring chunks share up to overlap runes.
func splitText(text string, size, overlap int, separators []string) []string {
	separator := ""
	var rest []string
	for i, candidate := range separators {
		if strings.Contains(text, candidate) {
			separator = candidate
			rest = separators[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeep(text, separator) {
		if utf8.RuneCountInString(piece) < size {
			pending = append(pending, piece)
			continue
		}
		chunks = append(chunks, mergePieces(pending, size, overlap)...)
		pending = nil
		if len(rest) > 0 {
			chunks = append(chunks, splitText(piece, size, overlap, rest)...)
		} else if trimmed := strings.TrimSpace(piece); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return append(chunks, mergePieces(pending, size, overlap)...)
}

// splitKeep splits on separator and keeps it at the start of each following piece.
func splitKeep(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, separator)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = separator + part
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

func mergePieces(pieces []string, size, overlap int) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	emit := func() {
		if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		length := utf8.RuneCountInString(piece)
		if total+length > size && len(current) > 0 {
			emit()
			for len(current) > 0 && (total > overlap || total+length > size) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += length
	}
	if len(current) > 0 {
		emit()
	}
	return chunks
}
