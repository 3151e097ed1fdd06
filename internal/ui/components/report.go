// Package components renders tutor results for the terminal.
package components

import (
	"fmt"
	"strings"

	"github.com/abhisek/mentorloop/internal/interview"
	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/abhisek/mentorloop/internal/ui/theme"
)

const width = 60

// Question renders an interview question card.
func Question(q *interview.QuestionView, total int) string {
	if q == nil {
		return theme.Hint.Render("No more questions. Finalize the session to see your report.")
	}
	head := theme.Heading.Render(fmt.Sprintf("Question %d of %d", q.Number, total)) +
		theme.Hint.Render(fmt.Sprintf("  %s · %s", q.Difficulty, q.Topic))
	return theme.Card.Width(width).Render(head + "\n\n" + theme.Body.Render(q.Text))
}

// Evaluation renders the grading of one answer.
func Evaluation(ev store.Evaluation) string {
	var b strings.Builder
	b.WriteString(theme.LevelStyle(ev.Level).Render(ev.Level))
	if ev.LogicFlow != "" {
		b.WriteString("  " + theme.Hint.Render(ev.LogicFlow))
	}
	b.WriteString("\n")
	list(&b, "Strengths", ev.Strengths)
	list(&b, "Missing", ev.MissingConcepts)
	list(&b, "Try next", ev.Suggestions)
	return strings.TrimRight(b.String(), "\n")
}

// Report renders a finalized interview report.
func Report(r *interview.Report) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(fmt.Sprintf("Mock interview: %s", r.Subject)) + "\n\n")
	b.WriteString(Bar("Overall", r.OverallScore/100, true, width) + "\n")
	b.WriteString(theme.Label.Render("Readiness") + theme.LevelStyle(r.Readiness).Render(r.Readiness) + "\n")
	b.WriteString(theme.Label.Render("Answered") + theme.Body.Render(fmt.Sprintf("%d of %d", r.Answered, r.Total)) + "\n\n")

	if len(r.Topics) > 0 {
		b.WriteString(theme.Heading.Render("Topics") + "\n")
		for _, t := range r.Topics {
			b.WriteString(Bar(t.Topic, t.Average/100, true, width))
			b.WriteString(" " + theme.LevelStyle(t.Bucket).Render(t.Bucket) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(theme.Body.Render(r.Feedback))
	return b.String()
}

// Profile renders a learner profile.
func Profile(p *store.LearnerProfile) string {
	if p == nil {
		return theme.Hint.Render("No profile yet. It is inferred after a few conversations.")
	}
	var b strings.Builder
	b.WriteString(theme.Title.Render("Learner "+p.UserID) + "\n\n")
	row(&b, "Skill level", p.SkillLevel)
	row(&b, "Learning style", p.LearningStyle)
	row(&b, "Confidence", p.ConfidenceLevel)
	if !p.LastUpdated.IsZero() {
		row(&b, "Updated", p.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
	b.WriteString("\n" + theme.Heading.Render("Intents") + "\n")
	d := p.IntentDistribution
	for _, e := range []struct {
		name  string
		share float64
	}{{"learning", d.Learning}, {"revision", d.Revision}, {"interview", d.Interview}, {"exploration", d.Exploration}} {
		b.WriteString(Bar(e.name, e.share/100, true, width) + "\n")
	}
	list(&b, "Weak areas", p.WeakConceptClusters)
	return strings.TrimRight(b.String(), "\n")
}

// Artifact renders a runtime artifact.
func Artifact(a runtimecfg.Artifact) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Runtime artifact "+a.Version) + "\n\n")
	if a.TrainingDataRange.SampleSize > 0 {
		row(&b, "Trained on", fmt.Sprintf("%d signals", a.TrainingDataRange.SampleSize))
	}
	b.WriteString(theme.Heading.Render("Intent thresholds") + "\n")
	row(&b, "concept_learning", fmt.Sprintf("%.2f", a.IntentThresholds.ConceptLearning))
	row(&b, "interview_prep", fmt.Sprintf("%.2f", a.IntentThresholds.InterviewPrep))
	row(&b, "problem_solving", fmt.Sprintf("%.2f", a.IntentThresholds.ProblemSolving))
	b.WriteString(theme.Heading.Render("Retrieval") + "\n")
	row(&b, "similarity_threshold", fmt.Sprintf("%.2f", a.RetrievalWeights.SimilarityThreshold))
	row(&b, "semantic_boost", fmt.Sprintf("%.2f", a.RetrievalWeights.SemanticBoost))
	row(&b, "keyword_match_boost", fmt.Sprintf("%.2f", a.RetrievalWeights.KeywordMatchBoost))
	row(&b, "recency_penalty", fmt.Sprintf("%.2f", a.RetrievalWeights.RecencyPenalty))
	b.WriteString(theme.Heading.Render("Explanations") + "\n")
	row(&b, "beginner_verbosity", fmt.Sprintf("%.2f", a.ExplanationConfig.BeginnerVerbosity))
	row(&b, "advanced_conciseness", fmt.Sprintf("%.2f", a.ExplanationConfig.AdvancedConciseness))
	row(&b, "interview_strictness", fmt.Sprintf("%.2f", a.ExplanationConfig.InterviewStrictness))
	return strings.TrimRight(b.String(), "\n")
}

func row(b *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	b.WriteString(theme.Label.Render(label) + theme.Body.Render(value) + "\n")
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(theme.Heading.Render(title) + "\n")
	for _, it := range items {
		b.WriteString("  • " + theme.Body.Render(it) + "\n")
	}
}
