// Package runtimecfg defines the runtime model artifact: the versioned set of
// thresholds, retrieval weights and explanation style parameters that the
// training job writes and the live pipeline reads.
package runtimecfg

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Concept-learning threshold bounds enforced on every artifact.
const (
	MinConceptThreshold = 0.65
	MaxConceptThreshold = 0.95
)

// IntentThresholds are per-intent confidence cutoffs.
type IntentThresholds struct {
	ConceptLearning float64 `json:"concept_learning"`
	InterviewPrep   float64 `json:"interview_prep"`
	ProblemSolving  float64 `json:"problem_solving"`
}

// RetrievalWeights tune ranking and the clarification gate.
type RetrievalWeights struct {
	RecencyPenalty    float64 `json:"recency_penalty"`
	SemanticBoost     float64 `json:"semantic_boost"`
	KeywordMatchBoost float64 `json:"keyword_match_boost"`

	// SimilarityThreshold is the top-chunk similarity below which the
	// learner is asked to clarify.
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// ExplanationConfig parameterizes the style directives.
type ExplanationConfig struct {
	BeginnerVerbosity   float64 `json:"beginner_verbosity"`
	AdvancedConciseness float64 `json:"advanced_conciseness"`
	InterviewStrictness float64 `json:"interview_strictness"`
}

// TrainingDataRange records which signals produced the artifact.
type TrainingDataRange struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	SampleSize int       `json:"sample_size"`
}

// Artifact is one version of the runtime configuration.
type Artifact struct {
	Version           string            `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	IntentThresholds  IntentThresholds  `json:"intent_thresholds"`
	RetrievalWeights  RetrievalWeights  `json:"retrieval_weights"`
	ExplanationConfig ExplanationConfig `json:"explanation_config"`
	TrainingDataRange TrainingDataRange `json:"training_data_range"`
}

// DefaultVersion labels the built-in artifact used before any training run.
const DefaultVersion = "default"

// Defaults returns the fixed artifact used when none has been published.
func Defaults() Artifact {
	return Artifact{
		Version: DefaultVersion,
		IntentThresholds: IntentThresholds{
			ConceptLearning: 0.65,
			InterviewPrep:   0.70,
			ProblemSolving:  0.60,
		},
		RetrievalWeights: RetrievalWeights{
			RecencyPenalty:      0.1,
			SemanticBoost:       1.0,
			KeywordMatchBoost:   0.2,
			SimilarityThreshold: 0.55,
		},
		ExplanationConfig: ExplanationConfig{
			BeginnerVerbosity:   0.5,
			AdvancedConciseness: 0.7,
			InterviewStrictness: 0.8,
		},
	}
}

// NewVersion derives a version id from t. Ids sort in creation order.
func NewVersion(t time.Time) string {
	return fmt.Sprintf("v%d", t.UnixMilli())
}

// Clamp pulls every field back into its valid range.
func (a *Artifact) Clamp() {
	t := &a.IntentThresholds
	t.ConceptLearning = clamp(t.ConceptLearning, MinConceptThreshold, MaxConceptThreshold)
	t.InterviewPrep = clamp(t.InterviewPrep, 0, 1)
	t.ProblemSolving = clamp(t.ProblemSolving, 0, 1)

	w := &a.RetrievalWeights
	w.RecencyPenalty = clamp(w.RecencyPenalty, 0, 1)
	w.SemanticBoost = clamp(w.SemanticBoost, 0, 2)
	w.KeywordMatchBoost = clamp(w.KeywordMatchBoost, 0, 1)
	w.SimilarityThreshold = clamp(w.SimilarityThreshold, 0, 1)

	e := &a.ExplanationConfig
	e.BeginnerVerbosity = clamp(e.BeginnerVerbosity, 0, 1)
	e.AdvancedConciseness = clamp(e.AdvancedConciseness, 0, 1)
	e.InterviewStrictness = clamp(e.InterviewStrictness, 0, 1)

	if a.TrainingDataRange.SampleSize < 0 {
		a.TrainingDataRange.SampleSize = 0
	}
}

// Decode parses a stored artifact. Fields missing from data keep their
// default values, and the result is clamped.
func Decode(data []byte) (Artifact, error) {
	a := Defaults()
	if err := json.Unmarshal(data, &a); err != nil {
		return Defaults(), fmt.Errorf("decode artifact: %w", err)
	}
	a.Clamp()
	return a, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
