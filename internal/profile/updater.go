// Package profile infers and maintains the per-learner profile.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
)

// Updater refreshes learner profiles from recent interactions.
type Updater struct {
	provider llm.Provider
	profiles store.ProfileRepo
	logger   *slog.Logger
	now      func() time.Time
}

// NewUpdater creates an Updater.
func NewUpdater(provider llm.Provider, profiles store.ProfileRepo, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		provider: provider,
		profiles: profiles,
		logger:   logger.With("component", "profile"),
		now:      time.Now,
	}
}

type profileOutput struct {
	HasSignal           bool                     `json:"has_signal"`
	SkillLevel          string                   `json:"skill_level"`
	LearningStyle       string                   `json:"learning_style"`
	ConfidenceLevel     string                   `json:"confidence_level"`
	IntentDistribution  store.IntentDistribution `json:"intent_distribution"`
	WeakConceptClusters []string                 `json:"weak_concept_clusters"`
}

// Update infers a new profile for userID from recent interaction texts and
// merges it into the stored one. It returns the existing profile unchanged
// when the interactions carry no signal, and nil with an error on failure.
func (u *Updater) Update(ctx context.Context, userID string, interactions []string) (*store.LearnerProfile, error) {
	existing, err := u.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	texts := nonBlank(interactions)
	if len(texts) == 0 {
		return existing, nil
	}

	ctx = llm.WithPurpose(ctx, "profile-update")
	resp, err := u.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserPrompt(buildUserMessage(existing, texts)),
		Schema:      ProfileSchema,
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("infer profile: %w", err)
	}

	var out profileOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if !out.HasSignal {
		u.logger.Debug("no profile signal in recent interactions", "user", userID)
		return existing, nil
	}

	merged := Merge(existing, out.toProfile(userID))
	merged.LastUpdated = u.now()
	if err := u.profiles.Put(ctx, merged); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return merged, nil
}

func (o profileOutput) toProfile(userID string) *store.LearnerProfile {
	return &store.LearnerProfile{
		UserID:              userID,
		SkillLevel:          o.SkillLevel,
		LearningStyle:       o.LearningStyle,
		ConfidenceLevel:     o.ConfidenceLevel,
		IntentDistribution:  o.IntentDistribution,
		WeakConceptClusters: o.WeakConceptClusters,
	}
}

// Merge overlays the fields of update that are set and valid onto a copy of
// base. Weak concept clusters are replaced only by a non-empty list.
func Merge(base, update *store.LearnerProfile) *store.LearnerProfile {
	var out store.LearnerProfile
	if base != nil {
		out = *base
		out.WeakConceptClusters = slices.Clone(base.WeakConceptClusters)
	}
	if update == nil {
		return &out
	}
	if out.UserID == "" {
		out.UserID = update.UserID
	}
	if slices.Contains(SkillLevels, update.SkillLevel) {
		out.SkillLevel = update.SkillLevel
	}
	if slices.Contains(LearningStyles, update.LearningStyle) {
		out.LearningStyle = update.LearningStyle
	}
	if slices.Contains(ConfidenceLevels, update.ConfidenceLevel) {
		out.ConfidenceLevel = update.ConfidenceLevel
	}
	if d := update.IntentDistribution; d.Learning+d.Revision+d.Interview+d.Exploration > 0 {
		out.IntentDistribution = d
	}
	if clusters := dedupe(update.WeakConceptClusters); len(clusters) > 0 {
		out.WeakConceptClusters = clusters
	}
	return &out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

const systemPrompt = `You maintain a profile of a student learning computer science.

Rules:
- Infer only from the student's behavior in the interactions. Never ask the student anything.
- Update gradually: start from the existing profile and change a field only when the interactions clearly support it.
- intent_distribution is a percentage split across learning, revision, interview and exploration that sums to about 100.
- weak_concept_clusters lists topics the student repeatedly struggles with, keeping earlier ones unless they now look mastered.
- Set has_signal to false when the interactions reveal nothing about the student; still echo the existing values.`

// maxInteractionChars bounds each interaction in the prompt.
const maxInteractionChars = 600

func buildUserMessage(existing *store.LearnerProfile, texts []string) string {
	var b strings.Builder
	b.WriteString("Existing profile:\n")
	if existing == nil {
		b.WriteString("none yet\n")
	} else {
		data, _ := json.MarshalIndent(existing, "", "  ")
		b.Write(data)
		b.WriteString("\n")
	}
	b.WriteString("\nRecent interactions (oldest first):\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(t, maxInteractionChars))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
