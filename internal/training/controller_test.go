package training

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sig(difficulty string, confused bool, conf float64, ts time.Time) store.LearningSignal {
	return store.LearningSignal{
		UserID:    "u1",
		Timestamp: ts,
		Metrics: store.SignalMetrics{
			QuestionDifficulty:  difficulty,
			DetectedConfusion:   confused,
			RetrievalConfidence: conf,
		},
	}
}

func TestAggregate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := Aggregate([]store.LearningSignal{
		sig("basic", true, 0.9, t0.Add(3*time.Hour)),
		sig("basic", false, 0.9, t0),
		sig("advanced", true, 0.5, t0.Add(time.Hour)),
		sig("basic", true, 0.8, t0.Add(2*time.Hour)), // 0.8 is not above the cutoff
	})

	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.ConfidentConfusion)
	assert.InDelta(t, 0.25, st.ErrorRate, 1e-9)
	assert.Equal(t, 3, st.Basic)
	assert.InDelta(t, 2.0/3.0, st.BeginnerConfusionRate, 1e-9)
	assert.Equal(t, t0, st.Oldest)
	assert.Equal(t, t0.Add(3*time.Hour), st.Newest)
}

func TestConceptThreshold_AlwaysInRange(t *testing.T) {
	for i := 0; i <= 100; i++ {
		rate := float64(i) / 100
		got := ConceptThreshold(rate)
		assert.GreaterOrEqual(t, got, 0.65, rate)
		assert.LessOrEqual(t, got, 0.95, rate)
	}
	assert.InDelta(t, 0.65, ConceptThreshold(0), 1e-9)
	assert.InDelta(t, 0.75, ConceptThreshold(0.2), 1e-9)
	assert.InDelta(t, 0.95, ConceptThreshold(1), 1e-9)
}

func TestBeginnerVerbosity_RoundsToTwoDecimals(t *testing.T) {
	assert.Equal(t, 0.5, BeginnerVerbosity(0))
	assert.Equal(t, 0.83, BeginnerVerbosity(2.0/3.0))
	assert.Equal(t, 1.0, BeginnerVerbosity(1))
}

func TestDerive_KeepsOtherDefaults(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	a := Derive(Stats{Total: 3, ErrorRate: 0.1, BeginnerConfusionRate: 0.5, Oldest: now.Add(-time.Hour), Newest: now}, now)

	def := runtimecfg.Defaults()
	assert.Equal(t, runtimecfg.NewVersion(now), a.Version)
	assert.InDelta(t, 0.70, a.IntentThresholds.ConceptLearning, 1e-9)
	assert.Equal(t, 0.75, a.ExplanationConfig.BeginnerVerbosity)
	assert.Equal(t, def.RetrievalWeights, a.RetrievalWeights)
	assert.Equal(t, def.IntentThresholds.InterviewPrep, a.IntentThresholds.InterviewPrep)
	assert.Equal(t, 3, a.TrainingDataRange.SampleSize)

	again := Derive(Stats{Total: 3, ErrorRate: 0.1, BeginnerConfusionRate: 0.5, Oldest: now.Add(-time.Hour), Newest: now}, now)
	assert.Equal(t, a, again, "same window, same artifact")
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "train.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRun_SkipsWithoutSignals(t *testing.T) {
	s := openStore(t)
	loader := runtimecfg.NewLoader(s.ArtifactRepo(), nil)

	got, err := NewController(s.SignalRepo(), loader, 0, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SkippedNoData, got)

	latest, err := s.ArtifactRepo().Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRun_PublishesArtifact(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for i := range 4 {
		confused := i < 2
		require.NoError(t, s.SignalRepo().AppendSignal(ctx, &store.LearningSignal{
			UserID:  "u1",
			Metrics: store.SignalMetrics{QuestionDifficulty: "basic", DetectedConfusion: confused, RetrievalConfidence: 0.95},
		}))
	}

	loader := runtimecfg.NewLoader(s.ArtifactRepo(), nil)
	c := NewController(s.SignalRepo(), loader, 0, nil)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	version, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, runtimecfg.NewVersion(now), version)

	active := loader.Active(ctx)
	assert.Equal(t, version, active.Version)
	assert.InDelta(t, 0.90, active.IntentThresholds.ConceptLearning, 1e-9)
	assert.Equal(t, 0.75, active.ExplanationConfig.BeginnerVerbosity)
	assert.Equal(t, 4, active.TrainingDataRange.SampleSize)

	stored, err := loader.Get(ctx, version)
	require.NoError(t, err)
	assert.Equal(t, active.IntentThresholds, stored.IntentThresholds)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, runtimecfg.Artifact) error {
	return errors.New("disk full")
}

func TestRun_PublishError(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.SignalRepo().AppendSignal(context.Background(), &store.LearningSignal{UserID: "u1"}))

	_, err := NewController(s.SignalRepo(), failingPublisher{}, 0, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestScheduler(t *testing.T) {
	s := openStore(t)
	c := NewController(s.SignalRepo(), runtimecfg.NewLoader(s.ArtifactRepo(), nil), 0, nil)

	_, err := NewScheduler(c, "not a schedule", time.Minute, nil)
	assert.Error(t, err)

	sched, err := NewScheduler(c, DefaultSchedule, time.Minute, nil)
	require.NoError(t, err)
	sched.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sched.Stop(ctx))
}
