package conversation

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/healthcareplus/clinic-assistant/internal/observability/metrics"
	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Retriever exposes the query capability the agent needs.
type Retriever interface {
	Query(ctx context.Context, query string, topK int) ([]string, error)
}

// MemoryRAGStore keeps document embeddings in memory and retrieves by cosine
// similarity. The corpus is a handful of clinic documents, so nothing fancier
// than a linear scan is warranted.
type MemoryRAGStore struct {
	client embeddingClient
	model  string
	logger *logging.Logger

	mu        sync.RWMutex
	documents []ragDocument
}

type ragDocument struct {
	content   string
	embedding []float32
}

// NewMemoryRAGStore creates an empty in-memory store.
func NewMemoryRAGStore(client embeddingClient, model string, logger *logging.Logger) *MemoryRAGStore {
	if client == nil {
		panic("conversation: embedding client cannot be nil")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryRAGStore{
		client: client,
		model:  model,
		logger: logger.Named("rag_store"),
	}
}

// AddDocuments embeds and stores the given contents.
func (s *MemoryRAGStore) AddDocuments(ctx context.Context, contents []string) error {
	if len(contents) == 0 {
		return nil
	}

	resp, err := s.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: contents,
	})
	if err != nil {
		return err
	}
	if len(resp.Data) != len(contents) {
		return errors.New("conversation: embedding response size mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range resp.Data {
		s.documents = append(s.documents, ragDocument{
			content:   contents[i],
			embedding: item.Embedding,
		})
	}
	return nil
}

// Query returns the topK most similar documents to the query.
func (s *MemoryRAGStore) Query(ctx context.Context, query string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = 3
	}
	resp, err := s.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: []string{query},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	queryVec := resp.Data[0].Embedding

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.documents) == 0 {
		return nil, nil
	}

	type scored struct {
		score   float64
		content string
	}
	results := make([]scored, 0, len(s.documents))
	for _, doc := range s.documents {
		results = append(results, scored{
			score:   cosineSimilarity(queryVec, doc.embedding),
			content: doc.content,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })

	if len(results) > topK {
		results = results[:topK]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.content
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
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

// FallbackRetriever queries the vector store first and degrades to the
// knowledge base's keyword search when embeddings fail or return nothing.
type FallbackRetriever struct {
	store     Retriever
	knowledge *ClinicKnowledge
	logger    *logging.Logger
	metrics   *metrics.ConversationMetrics
}

// NewFallbackRetriever wires the degradation chain. store may be nil when no
// embedding provider is configured; keyword search then serves everything.
func NewFallbackRetriever(store Retriever, knowledge *ClinicKnowledge, logger *logging.Logger, m *metrics.ConversationMetrics) *FallbackRetriever {
	if knowledge == nil {
		panic("conversation: clinic knowledge cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackRetriever{
		store:     store,
		knowledge: knowledge,
		logger:    logger.Named("retriever"),
		metrics:   m,
	}
}

// Query retrieves context for a FAQ answer.
func (r *FallbackRetriever) Query(ctx context.Context, query string, topK int) ([]string, error) {
	if r.store != nil {
		docs, err := r.store.Query(ctx, query, topK)
		if err == nil && len(docs) > 0 {
			r.metrics.ObserveRetrieval("vector")
			return docs, nil
		}
		if err != nil {
			r.logger.Warn("vector retrieval failed, using keyword search", "error", err)
		}
	}
	r.metrics.ObserveRetrieval("keyword")
	return r.knowledge.KeywordSearch(query, topK), nil
}
