package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxEmbedBatch is the largest batch the embedding endpoint accepts.
const maxEmbedBatch = 100

// embedConcurrency bounds parallel batch requests.
const embedConcurrency = 4

// embedBackend performs one batched embedding request.
type embedBackend interface {
	embed(ctx context.Context, texts []string, task genai.TaskType) ([][]float32, error)
	modelName() string
}

// GeminiEmbedder embeds knowledge chunks and queries with a Gemini embedding model.
type GeminiEmbedder struct {
	backend   embedBackend
	batchSize int
	logger    *zap.Logger
}

func newGeminiEmbedder(backend embedBackend, logger *zap.Logger) *GeminiEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiEmbedder{backend: backend, batchSize: maxEmbedBatch, logger: logger}
}

// EmbedDocuments embeds texts for storage, splitting them into batches that
// run concurrently. Results keep input order.
func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.backend.embed(gCtx, texts[start:end], genai.TaskTypeRetrievalDocument)
			if err != nil {
				return &APICallError{Model: e.backend.modelName(), Message: fmt.Sprintf("embed batch %d-%d", start, end), Cause: err}
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedding batch %d-%d returned %d vectors", start, end, len(vecs))
			}
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Debug("embedded documents", zap.String("ai_model", e.backend.modelName()), zap.Int("count", len(texts)))
	return results, nil
}

// EmbedQuery embeds a single retrieval query.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.backend.embed(ctx, []string{text}, genai.TaskTypeRetrievalQuery)
	if err != nil {
		return nil, &APICallError{Model: e.backend.modelName(), Message: "embed query", Cause: err}
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding query returned %d vectors", len(vecs))
	}
	return vecs[0], nil
}

// genaiEmbedBackend calls BatchEmbedContents on the Gemini API.
type genaiEmbedBackend struct {
	client *genai.Client
	model  string
}

func (b *genaiEmbedBackend) modelName() string {
	return b.model
}

func (b *genaiEmbedBackend) embed(ctx context.Context, texts []string, task genai.TaskType) ([][]float32, error) {
	// A fresh model per call keeps TaskType local to this request.
	em := b.client.EmbeddingModel(b.model)
	em.TaskType = task

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("empty embedding in response")
		}
		out = append(out, emb.Values)
	}
	return out, nil
}
