package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/pkg/logging"
)

// minScore filters out documents with no meaningful token overlap.
const minScore = 0.05

// Source lists the documents the retriever scores.
type Source interface {
	ListActive(ctx context.Context, businessID uuid.UUID) ([]Document, error)
}

// Retriever ranks knowledge documents against a query and renders the
// best matches as a prompt context block.
type Retriever struct {
	source Source
	logger *logging.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(source Source, logger *logging.Logger) *Retriever {
	if logger == nil {
		logger = logging.Default()
	}
	return &Retriever{source: source, logger: logger}
}

// Context returns up to topK relevant documents rendered as a context block,
// or "" when nothing relevant exists. Retrieval failures are logged and
// reported so the caller can fall back to a plain prompt.
func (r *Retriever) Context(ctx context.Context, businessID uuid.UUID, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = 3
	}

	docs, err := r.source.ListActive(ctx, businessID)
	if err != nil {
		r.logger.Error("rag retrieval failed", "business_id", businessID, "error", err)
		return "", err
	}
	if len(docs) == 0 {
		return "", nil
	}

	queryVec := Embed(query)

	type scored struct {
		score float64
		doc   Document
	}
	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		score := Cosine(queryVec, Embed(doc.Title+" "+doc.Content))
		if score >= minScore {
			results = append(results, scored{score: score, doc: doc})
		}
	}
	if len(results) == 0 {
		return "", nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	var b strings.Builder
	b.WriteString("Informações do negócio relevantes para a pergunta:\n")
	for _, res := range results {
		if res.doc.Title != "" {
			fmt.Fprintf(&b, "- %s: %s\n", res.doc.Title, res.doc.Content)
		} else {
			fmt.Fprintf(&b, "- %s\n", res.doc.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
