package components

import (
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/abhisek/mentorloop/internal/interview"
	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestBar_Width(t *testing.T) {
	for _, v := range []float64{-1, 0, 0.37, 1, 2} {
		assert.Equal(t, 40, lipgloss.Width(Bar("", v, false, 40)), "value %v", v)
	}
	assert.Equal(t, 40, lipgloss.Width(Bar("overall", 0.5, true, 40)))
}

func TestReport(t *testing.T) {
	out := Report(&interview.Report{
		Subject:      "go",
		OverallScore: 62.5,
		Readiness:    interview.ReadinessJunior,
		Feedback:     "Solid foundation.",
		Answered:     4,
		Total:        50,
		Topics: []interview.TopicScore{
			{Topic: "channels", Average: 62.5, Answered: 4, Bucket: interview.BucketMedium},
		},
	})
	for _, want := range []string{"Mock interview: go", "Junior", "4 of 50", "channels", "medium", "Solid foundation."} {
		assert.Contains(t, out, want)
	}
}

func TestQuestionAndEvaluation(t *testing.T) {
	q := Question(&interview.QuestionView{Number: 2, Text: "What is a goroutine?", Difficulty: "Beginner", Topic: "concurrency"}, 50)
	assert.Contains(t, q, "Question 2 of 50")
	assert.Contains(t, q, "goroutine")
	assert.Contains(t, Question(nil, 50), "Finalize")

	ev := Evaluation(store.Evaluation{Level: "Good", Strengths: []string{"clear example"}, MissingConcepts: nil})
	assert.Contains(t, ev, "Good")
	assert.Contains(t, ev, "clear example")
	assert.NotContains(t, ev, "Missing")
}

func TestProfileAndArtifact(t *testing.T) {
	assert.Contains(t, Profile(nil), "No profile yet")

	p := Profile(&store.LearnerProfile{UserID: "u1", SkillLevel: "beginner", WeakConceptClusters: []string{"recursion"}})
	assert.Contains(t, p, "beginner")
	assert.Contains(t, p, "recursion")
	assert.Contains(t, p, "exploration")

	a := runtimecfg.Defaults()
	out := Artifact(a)
	assert.Contains(t, out, "0.55")
	assert.Contains(t, out, "interview_strictness")
}
