package interview

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/abhisek/mentorloop/internal/store"
	"gopkg.in/yaml.v3"
)

// bankFile is the YAML layout of a question bank file.
type bankFile struct {
	Subject   string           `yaml:"subject"`
	Questions []store.Question `yaml:"questions"`
}

// LoadQuestions parses a YAML question bank. Questions without a subject
// inherit the file's. Difficulty is matched case-insensitively.
func LoadQuestions(r io.Reader) ([]store.Question, error) {
	var f bankFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: parse question bank: %v", ErrValidation, err)
	}

	seen := make(map[string]bool, len(f.Questions))
	out := make([]store.Question, 0, len(f.Questions))
	for i, q := range f.Questions {
		q.ID = strings.TrimSpace(q.ID)
		q.Text = strings.TrimSpace(q.Text)
		if q.Subject == "" {
			q.Subject = f.Subject
		}
		if q.Topic == "" {
			q.Topic = "general"
		}
		switch {
		case q.ID == "":
			return nil, fmt.Errorf("%w: question %d has no id", ErrValidation, i+1)
		case q.Text == "":
			return nil, fmt.Errorf("%w: question %s has no text", ErrValidation, q.ID)
		case q.Subject == "":
			return nil, fmt.Errorf("%w: question %s has no subject", ErrValidation, q.ID)
		case seen[q.ID]:
			return nil, fmt.Errorf("%w: duplicate question id %s", ErrValidation, q.ID)
		}
		d, ok := normalizeDifficulty(q.Difficulty)
		if !ok {
			return nil, fmt.Errorf("%w: question %s has difficulty %q", ErrValidation, q.ID, q.Difficulty)
		}
		q.Difficulty = d
		seen[q.ID] = true
		out = append(out, q)
	}
	return out, nil
}

func normalizeDifficulty(d string) (string, bool) {
	for _, v := range []string{Beginner, Intermediate, Advanced} {
		if strings.EqualFold(strings.TrimSpace(d), v) {
			return v, true
		}
	}
	return "", false
}

// Import stores questions in the bank and returns how many were written.
func (m *Machine) Import(ctx context.Context, qs []store.Question) (int, error) {
	return m.questions.Upsert(ctx, qs)
}
