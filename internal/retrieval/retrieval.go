// Package retrieval turns a learner query into confidence-gated curriculum
// context: classify, embed, search, score.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/abhisek/mentorloop/internal/intent"
	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/abhisek/mentorloop/internal/vectorstore"
)

// Neighbour counts per intent.
const (
	RevisionK = 3
	DefaultK  = 5
)

// Chunk is one retrieved piece of curriculum content.
type Chunk struct {
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	Type       string  `json:"type"`
}

// Result is the per-query retrieval outcome. It is never persisted.
type Result struct {
	Intent             intent.Intent `json:"intent"`
	Strategy           string        `json:"strategy"`
	SearchTerms        string        `json:"search_terms"`
	Chunks             []Chunk       `json:"chunks"`
	Confidence         float64       `json:"confidence"`
	NeedsClarification bool          `json:"needs_clarification"`
}

// Classifier is the intent classification step.
type Classifier interface {
	Classify(ctx context.Context, query string, profile *store.LearnerProfile) intent.Result
}

// ArtifactSource supplies the active runtime artifact.
type ArtifactSource interface {
	Active(ctx context.Context) runtimecfg.Artifact
}

// Controller orchestrates retrieval for one query at a time.
type Controller struct {
	classifier Classifier
	embedder   llm.Embedder
	searcher   vectorstore.Searcher
	artifacts  ArtifactSource
	logger     *slog.Logger
}

// NewController creates a Controller.
func NewController(classifier Classifier, embedder llm.Embedder, searcher vectorstore.Searcher, artifacts ArtifactSource, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		classifier: classifier,
		embedder:   embedder,
		searcher:   searcher,
		artifacts:  artifacts,
		logger:     logger.With("component", "retrieval"),
	}
}

// K returns how many neighbours to fetch for an intent.
func K(i intent.Intent) int {
	if i == intent.QuickRevision {
		return RevisionK
	}
	return DefaultK
}

// Retrieve never fails. Embedding or search errors degrade to an empty
// context with zero confidence so the turn can still be answered.
func (c *Controller) Retrieve(ctx context.Context, query string, profile *store.LearnerProfile) *Result {
	cls := c.classifier.Classify(ctx, query, profile)
	res := &Result{
		Intent:             cls.Intent,
		Strategy:           cls.Strategy,
		SearchTerms:        cls.SearchTerms,
		NeedsClarification: true,
	}

	vec, err := c.embedder.Embed(llm.WithPurpose(ctx, "retrieval-embedding"), cls.SearchTerms)
	if err != nil {
		c.logger.Warn("embedding failed, answering without context", "error", err)
		return res
	}

	matches, err := c.searcher.Nearest(ctx, vec, vectorstore.MetricCosine, K(cls.Intent))
	if err != nil {
		c.logger.Warn("vector search failed, answering without context", "error", err)
		return res
	}
	if len(matches) == 0 {
		return res
	}

	res.Chunks = make([]Chunk, len(matches))
	for i, m := range matches {
		res.Chunks[i] = Chunk{
			Content:    m.Payload.Content,
			Source:     m.Payload.Source,
			Similarity: similarity(m.Distance),
			Type:       m.Payload.Type,
		}
	}
	res.Confidence = res.Chunks[0].Similarity

	threshold := c.artifacts.Active(ctx).RetrievalWeights.SimilarityThreshold
	res.NeedsClarification = res.Confidence < threshold
	return res
}

// similarity converts a cosine distance to a similarity in [0, 1].
func similarity(d float64) float64 {
	return min(max(1-d, 0), 1)
}
