package interview

import (
	"math/rand/v2"

	"github.com/abhisek/mentorloop/internal/store"
)

// DrawConfig sizes a session.
type DrawConfig struct {
	Size         int `yaml:"size"`
	Beginner     int `yaml:"beginner"`
	Intermediate int `yaml:"intermediate"`
	Advanced     int `yaml:"advanced"`
}

// DefaultDrawConfig returns 50 questions split 20/20/10.
func DefaultDrawConfig() DrawConfig {
	return DrawConfig{Size: 50, Beginner: 20, Intermediate: 20, Advanced: 10}
}

// Draw picks a session's questions from pool. Each difficulty is shuffled
// and cut to its quota; if that leaves the session short, it is topped up
// from a shuffle of the unused questions. No question appears twice.
func Draw(pool []store.Question, cfg DrawConfig, rng *rand.Rand) []store.Question {
	byDifficulty := make(map[string][]store.Question)
	for _, q := range pool {
		byDifficulty[q.Difficulty] = append(byDifficulty[q.Difficulty], q)
	}

	quotas := []struct {
		difficulty string
		n          int
	}{
		{Beginner, cfg.Beginner},
		{Intermediate, cfg.Intermediate},
		{Advanced, cfg.Advanced},
	}

	used := make(map[string]bool)
	var out []store.Question
	for _, quota := range quotas {
		bucket := shuffled(byDifficulty[quota.difficulty], rng)
		for _, q := range bucket[:min(quota.n, len(bucket))] {
			if len(out) == cfg.Size {
				break
			}
			used[q.ID] = true
			out = append(out, q)
		}
	}

	if len(out) < cfg.Size {
		var rest []store.Question
		for _, q := range pool {
			if !used[q.ID] {
				rest = append(rest, q)
			}
		}
		for _, q := range shuffled(rest, rng) {
			if len(out) == cfg.Size {
				break
			}
			if used[q.ID] {
				continue
			}
			used[q.ID] = true
			out = append(out, q)
		}
	}
	return out
}

// shuffled returns a uniformly shuffled copy of qs.
func shuffled(qs []store.Question, rng *rand.Rand) []store.Question {
	out := make([]store.Question, len(qs))
	copy(out, qs)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
