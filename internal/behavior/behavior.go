// Package behavior derives the per-turn generation configuration from the
// learner profile, the retrieval result and the active runtime artifact.
package behavior

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/mentorloop/internal/intent"
	"github.com/abhisek/mentorloop/internal/retrieval"
	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
)

// MaxOutputTokens is the fixed generation ceiling for every intent.
const MaxOutputTokens = 2048

// Skill levels.
const (
	Beginner     = "beginner"
	Intermediate = "intermediate"
	Advanced     = "advanced"
)

// Behavior is the generation configuration for one turn.
type Behavior struct {
	SystemInstruction string
	Temperature       float64
	MaxOutputTokens   int
	StyleGuide        string

	// Retrieval is carried along so the orchestrator can build the prompt.
	Retrieval *retrieval.Result
}

// Temperature maps an intent to its sampling temperature.
func Temperature(i intent.Intent) float64 {
	switch i {
	case intent.ExploratoryQuestion:
		return 0.6
	case intent.ProblemSolving:
		return 0.1
	case intent.InterviewPreparation:
		return 0.4
	default:
		return 0.2
	}
}

// Adapter builds Behaviors.
type Adapter struct {
	artifacts retrieval.ArtifactSource
}

// NewAdapter creates an Adapter. The artifact source falls back to defaults
// on its own, so Adapt never fails.
func NewAdapter(artifacts retrieval.ArtifactSource) *Adapter {
	return &Adapter{artifacts: artifacts}
}

// Adapt composes the behavior for one turn. A nil profile is treated as an
// intermediate learner; a nil result as an unclassified query with no context.
func (a *Adapter) Adapt(ctx context.Context, profile *store.LearnerProfile, res *retrieval.Result) Behavior {
	if res == nil {
		res = &retrieval.Result{Intent: intent.ExploratoryQuestion, NeedsClarification: true}
	}
	art := runtimecfg.Defaults()
	if a.artifacts != nil {
		art = a.artifacts.Active(ctx)
	}

	level := Intermediate
	if profile != nil && profile.SkillLevel != "" {
		level = profile.SkillLevel
	}

	style := StyleDirective(level, art.ExplanationConfig)
	if res.Intent == intent.InterviewPreparation {
		style += "\n" + InterviewerDirective(art.ExplanationConfig.InterviewStrictness)
	}

	return Behavior{
		SystemInstruction: systemInstruction(style, res, profile),
		Temperature:       Temperature(res.Intent),
		MaxOutputTokens:   MaxOutputTokens,
		StyleGuide:        style,
		Retrieval:         res,
	}
}

// StyleDirective returns the explanation style for a skill level.
func StyleDirective(level string, cfg runtimecfg.ExplanationConfig) string {
	switch level {
	case Beginner:
		return fmt.Sprintf("Style: high verbosity (%.2f). Analogies are welcome. "+
			"Structure every explanation as what, then why, then how, then a worked example. "+
			"Define every technical term the first time you use it.", cfg.BeginnerVerbosity)
	case Advanced:
		return fmt.Sprintf("Style: low verbosity, conciseness %.2f. No analogies. "+
			"Answer directly first, then add only the detail that changes the answer.", cfg.AdvancedConciseness)
	default:
		return "Style: balance theory and practice. Explain the idea briefly, " +
			"then show how it is used in code or a concrete problem."
	}
}

// InterviewerDirective returns the interviewer persona for interview preparation.
func InterviewerDirective(strictness float64) string {
	return fmt.Sprintf("Persona: act as a technical interviewer with strictness %.2f. "+
		"Expect precise terminology, call out gaps the way an interviewer would, "+
		"and mention time and space complexity where relevant.", strictness)
}

func systemInstruction(style string, res *retrieval.Result, profile *store.LearnerProfile) string {
	var b strings.Builder
	b.WriteString("You are a tutor for students learning computer science and programming.\n")
	b.WriteString("Ground your answer in the curriculum context when it is relevant. ")
	b.WriteString("If the context does not cover the question, say so and answer from general knowledge.\n\n")
	b.WriteString(style)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Detected intent: %s\n", res.Intent)
	fmt.Fprintf(&b, "Retrieval confidence: %.2f\n", res.Confidence)
	if res.NeedsClarification {
		b.WriteString("Retrieval confidence is low: ask one short clarifying question if the request is ambiguous.\n")
	}
	if profile != nil && len(profile.WeakConceptClusters) > 0 {
		fmt.Fprintf(&b, "Known weak areas: %s\n", strings.Join(profile.WeakConceptClusters, ", "))
	}
	return b.String()
}
