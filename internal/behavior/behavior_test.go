package behavior

import (
	"context"
	"testing"

	"github.com/abhisek/mentorloop/internal/intent"
	"github.com/abhisek/mentorloop/internal/retrieval"
	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/stretchr/testify/assert"
)

type fixedArtifact struct{ a runtimecfg.Artifact }

func (f fixedArtifact) Active(context.Context) runtimecfg.Artifact { return f.a }

func TestTemperature(t *testing.T) {
	tests := map[intent.Intent]float64{
		intent.ExploratoryQuestion:  0.6,
		intent.ProblemSolving:       0.1,
		intent.InterviewPreparation: 0.4,
		intent.ConceptLearning:      0.2,
		intent.QuickRevision:        0.2,
		intent.Intent("unknown"):    0.2,
	}
	for i, want := range tests {
		assert.Equal(t, want, Temperature(i), i)
		assert.Equal(t, Temperature(i), Temperature(i), "pure")
	}
}

func TestAdapt_StyleBySkillLevel(t *testing.T) {
	art := runtimecfg.Defaults()
	art.ExplanationConfig.BeginnerVerbosity = 0.73
	a := NewAdapter(fixedArtifact{art})
	res := &retrieval.Result{Intent: intent.ConceptLearning, Confidence: 0.8123}

	beginner := a.Adapt(context.Background(), &store.LearnerProfile{SkillLevel: Beginner}, res)
	assert.Contains(t, beginner.StyleGuide, "0.73")
	assert.Contains(t, beginner.StyleGuide, "Analogies are welcome")

	advanced := a.Adapt(context.Background(), &store.LearnerProfile{SkillLevel: Advanced}, res)
	assert.Contains(t, advanced.StyleGuide, "No analogies")
	assert.Contains(t, advanced.StyleGuide, "0.70")

	none := a.Adapt(context.Background(), nil, res)
	assert.Equal(t, StyleDirective(Intermediate, art.ExplanationConfig), none.StyleGuide)

	assert.Contains(t, none.SystemInstruction, "Detected intent: concept_learning")
	assert.Contains(t, none.SystemInstruction, "Retrieval confidence: 0.81")
	assert.Equal(t, MaxOutputTokens, none.MaxOutputTokens)
	assert.Equal(t, 0.2, none.Temperature)
}

func TestAdapt_InterviewPersonaForAnyLevel(t *testing.T) {
	a := NewAdapter(fixedArtifact{runtimecfg.Defaults()})
	res := &retrieval.Result{Intent: intent.InterviewPreparation}

	for _, level := range []string{Beginner, Intermediate, Advanced} {
		b := a.Adapt(context.Background(), &store.LearnerProfile{SkillLevel: level}, res)
		assert.Contains(t, b.StyleGuide, "technical interviewer with strictness 0.80", level)
		assert.Equal(t, 0.4, b.Temperature)
		assert.Equal(t, MaxOutputTokens, b.MaxOutputTokens)
	}
}

func TestAdapt_NilInputs(t *testing.T) {
	b := NewAdapter(nil).Adapt(context.Background(), nil, nil)
	assert.Equal(t, 0.6, b.Temperature)
	assert.Contains(t, b.SystemInstruction, "Retrieval confidence: 0.00")
	assert.Contains(t, b.SystemInstruction, "clarifying question")
}
