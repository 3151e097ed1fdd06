// Package training recalibrates the runtime artifact from recent learning
// signals.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
)

// SkippedNoData is returned by Run when there are no signals to learn from.
const SkippedNoData = "SKIPPED_NO_DATA"

// DefaultWindow is how many of the most recent signals a run considers.
const DefaultWindow = 1000

// Heuristic constants.
const (
	confidentRetrieval = 0.8
	errorRateWeight    = 0.5
	confusionWeight    = 0.5
	basicDifficulty    = "basic"
)

// Publisher stores a new artifact and makes it the active one.
type Publisher interface {
	Publish(ctx context.Context, a runtimecfg.Artifact) error
}

// Controller runs the heuristic training job.
type Controller struct {
	signals   store.SignalRepo
	publisher Publisher
	window    int
	logger    *slog.Logger
	now       func() time.Time
}

// NewController creates a Controller reading at most window signals.
func NewController(signals store.SignalRepo, publisher Publisher, window int, logger *slog.Logger) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		signals:   signals,
		publisher: publisher,
		window:    window,
		logger:    logger.With("component", "training"),
		now:       time.Now,
	}
}

// Stats are the aggregates one run derives from its window.
type Stats struct {
	Total                 int
	ConfidentConfusion    int
	Basic                 int
	BasicConfusion        int
	ErrorRate             float64
	BeginnerConfusionRate float64
	Oldest                time.Time
	Newest                time.Time
}

// Aggregate computes Stats over signals.
func Aggregate(signals []store.LearningSignal) Stats {
	st := Stats{Total: len(signals)}
	for _, s := range signals {
		confused := s.Metrics.DetectedConfusion
		if confused && s.Metrics.RetrievalConfidence > confidentRetrieval {
			st.ConfidentConfusion++
		}
		if s.Metrics.QuestionDifficulty == basicDifficulty {
			st.Basic++
			if confused {
				st.BasicConfusion++
			}
		}
		if st.Oldest.IsZero() || s.Timestamp.Before(st.Oldest) {
			st.Oldest = s.Timestamp
		}
		if s.Timestamp.After(st.Newest) {
			st.Newest = s.Timestamp
		}
	}
	if st.Total > 0 {
		st.ErrorRate = float64(st.ConfidentConfusion) / float64(st.Total)
	}
	if st.Basic > 0 {
		st.BeginnerConfusionRate = float64(st.BasicConfusion) / float64(st.Basic)
	}
	return st
}

// ConceptThreshold maps an error rate to the concept-learning threshold.
// The result is always within the artifact's allowed range.
func ConceptThreshold(errorRate float64) float64 {
	v := runtimecfg.MinConceptThreshold + errorRate*errorRateWeight
	return math.Min(runtimecfg.MaxConceptThreshold, math.Max(runtimecfg.MinConceptThreshold, v))
}

// BeginnerVerbosity maps the beginner confusion rate to a verbosity,
// rounded to two decimals.
func BeginnerVerbosity(confusionRate float64) float64 {
	return math.Round((0.5+confusionRate*confusionWeight)*100) / 100
}

// Derive builds the artifact a run would publish for st.
func Derive(st Stats, now time.Time) runtimecfg.Artifact {
	a := runtimecfg.Defaults()
	a.Version = runtimecfg.NewVersion(now)
	a.CreatedAt = now.UTC()
	a.IntentThresholds.ConceptLearning = ConceptThreshold(st.ErrorRate)
	a.ExplanationConfig.BeginnerVerbosity = BeginnerVerbosity(st.BeginnerConfusionRate)
	a.TrainingDataRange = runtimecfg.TrainingDataRange{
		Start:      st.Oldest.UTC(),
		End:        st.Newest.UTC(),
		SampleSize: st.Total,
	}
	return a
}

// Run executes one training pass and returns the published version, or
// SkippedNoData when there were no signals.
func (c *Controller) Run(ctx context.Context) (string, error) {
	signals, err := c.signals.RecentSignals(ctx, c.window)
	if err != nil {
		return "", fmt.Errorf("load signals: %w", err)
	}
	if len(signals) == 0 {
		c.logger.Info("no learning signals, skipping training run")
		return SkippedNoData, nil
	}

	st := Aggregate(signals)
	a := Derive(st, c.now())
	if err := c.publisher.Publish(ctx, a); err != nil {
		return "", fmt.Errorf("publish artifact %s: %w", a.Version, err)
	}

	c.logger.Info("runtime artifact published",
		"version", a.Version,
		"signals", st.Total,
		"error_rate", st.ErrorRate,
		"concept_threshold", a.IntentThresholds.ConceptLearning,
		"beginner_verbosity", a.ExplanationConfig.BeginnerVerbosity)
	return a.Version, nil
}
