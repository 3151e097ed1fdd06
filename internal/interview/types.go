// Package interview runs mock interview sessions: a stratified question
// draw, per-answer grading and a final readiness report.
package interview

import (
	"errors"
	"time"

	"github.com/abhisek/mentorloop/internal/store"
)

var (
	// ErrNoContent is returned by Start when the subject has no questions.
	ErrNoContent = errors.New("interview: no questions for subject")

	// ErrSessionNotFound hides both missing and foreign sessions.
	ErrSessionNotFound = errors.New("interview: session not found")

	// ErrValidation reports a malformed request.
	ErrValidation = errors.New("interview: invalid request")

	// ErrInvalidState reports an operation the session's status forbids.
	ErrInvalidState = errors.New("interview: operation not allowed in current state")
)

// Session statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFinalized  = "finalized"
)

// Question difficulties.
const (
	Beginner     = "Beginner"
	Intermediate = "Intermediate"
	Advanced     = "Advanced"
)

// Evaluation levels.
const (
	LevelExcellent = "Excellent"
	LevelGood      = "Good"
	LevelAverage   = "Average"
	LevelWeak      = "Weak"
)

// Rubric scores each evaluation level.
var Rubric = map[string]float64{
	LevelExcellent: 100,
	LevelGood:      75,
	LevelAverage:   50,
	LevelWeak:      25,
}

// Score returns the rubric score of a level. Unknown levels score as Average.
func Score(level string) float64 {
	if s, ok := Rubric[level]; ok {
		return s
	}
	return Rubric[LevelAverage]
}

// MinAnswerChars is the shortest trimmed answer that gets graded.
const MinAnswerChars = 10

// QuestionView is a question as shown to the candidate, without the
// expected answers.
type QuestionView struct {
	ID         string `json:"id"`
	Number     int    `json:"number"`
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
}

func viewOf(ms *store.MockSession, i int) *QuestionView {
	if i < 0 || i >= len(ms.Questions) {
		return nil
	}
	q := ms.Questions[i]
	return &QuestionView{ID: q.ID, Number: i + 1, Text: q.Text, Difficulty: q.Difficulty, Topic: q.Topic}
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID      string        `json:"session_id"`
	TotalQuestions int           `json:"total_questions"`
	FirstQuestion  *QuestionView `json:"first_question"`
}

// Progress counts answered questions.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	Evaluation   store.Evaluation `json:"evaluation"`
	NextQuestion *QuestionView    `json:"next_question"`
	IsComplete   bool             `json:"is_complete"`
	Progress     Progress         `json:"progress"`

	// Rejected is set when the answer was too short to record. The
	// session is unchanged and NextQuestion repeats the current question.
	Rejected bool `json:"rejected,omitempty"`
}

// Topic buckets.
const (
	BucketStrong = "strong"
	BucketMedium = "medium"
	BucketWeak   = "weak"
)

// TopicScore is the aggregate for one topic.
type TopicScore struct {
	Topic    string  `json:"topic"`
	Average  float64 `json:"average"`
	Answered int     `json:"answered"`
	Bucket   string  `json:"bucket"`
}

// Readiness labels.
const (
	ReadinessMidLevel = "Mid-level"
	ReadinessJunior   = "Junior"
	ReadinessBeginner = "Beginner"
)

// Report is the immutable result of a finalized session.
type Report struct {
	SessionID    string       `json:"session_id"`
	Subject      string       `json:"subject"`
	OverallScore float64      `json:"overall_score"`
	Readiness    string       `json:"readiness"`
	Feedback     string       `json:"feedback"`
	Answered     int          `json:"answered"`
	Total        int          `json:"total"`
	Topics       []TopicScore `json:"topics"`
	Strong       []string     `json:"strong_topics"`
	Medium       []string     `json:"medium_topics"`
	Weak         []string     `json:"weak_topics"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
