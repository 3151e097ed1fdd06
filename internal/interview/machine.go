package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/abhisek/mentorloop/internal/store"
	"github.com/google/uuid"
)

// Machine drives mock interview sessions. Submissions to one session are
// expected one at a time; a racing write fails with store.ErrConflict.
type Machine struct {
	questions store.QuestionRepo
	sessions  store.SessionRepo
	grader    Grader
	cfg       DrawConfig
	logger    *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	now   func() time.Time
	newID func() string
}

// NewMachine creates a Machine.
func NewMachine(questions store.QuestionRepo, sessions store.SessionRepo, grader Grader, cfg DrawConfig, logger *slog.Logger) *Machine {
	if cfg.Size <= 0 {
		cfg = DefaultDrawConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		questions: questions,
		sessions:  sessions,
		grader:    grader,
		cfg:       cfg,
		logger:    logger.With("component", "interview"),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Start creates a session for subject and returns its first question.
func (m *Machine) Start(ctx context.Context, userID, subject string) (*StartResult, error) {
	subject = strings.TrimSpace(subject)
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrValidation)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrValidation)
	}

	pool, err := m.questions.BySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoContent, subject)
	}

	m.rngMu.Lock()
	drawn := Draw(pool, m.cfg, m.rng)
	m.rngMu.Unlock()

	ms := &store.MockSession{
		ID:        m.newID(),
		UserID:    userID,
		Subject:   subject,
		Questions: drawn,
		Status:    StatusInProgress,
		CreatedAt: m.now(),
	}
	if err := m.sessions.Create(ctx, ms); err != nil {
		return nil, err
	}

	m.logger.Info("interview started", "session", ms.ID, "subject", subject, "questions", len(drawn))
	return &StartResult{
		SessionID:      ms.ID,
		TotalQuestions: len(drawn),
		FirstQuestion:  viewOf(ms, 0),
	}, nil
}

// load fetches a session owned by userID.
func (m *Machine) load(ctx context.Context, userID, sessionID string) (*store.MockSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrValidation)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrValidation)
	}
	ms, err := m.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if ms.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return ms, nil
}

// Submit records an answer to the current question.
func (m *Machine) Submit(ctx context.Context, userID, sessionID, answer string) (*SubmitResult, error) {
	ms, err := m.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if ms.Status != StatusInProgress || ms.CurrentIndex >= len(ms.Questions) {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, ms.Status)
	}

	answer = strings.TrimSpace(answer)
	if utf8.RuneCountInString(answer) < MinAnswerChars {
		return &SubmitResult{
			Evaluation:   shortAnswerEvaluation(),
			NextQuestion: viewOf(ms, ms.CurrentIndex),
			Progress:     Progress{Answered: len(ms.Answers), Total: len(ms.Questions)},
			Rejected:     true,
		}, nil
	}

	q := ms.Questions[ms.CurrentIndex]
	ev, err := m.grader.Grade(ctx, q, answer)
	if err != nil {
		m.logger.Warn("grading failed, recording neutral evaluation", "session", ms.ID, "question", q.ID, "error", err)
		ev = neutralEvaluation()
	}

	ms.Answers = append(ms.Answers, store.AnswerRecord{
		QuestionID: q.ID,
		Question:   q.Text,
		Topic:      q.Topic,
		UserAnswer: answer,
		Evaluation: ev,
		Timestamp:  m.now(),
	})
	ms.CurrentIndex++
	if ms.CurrentIndex >= len(ms.Questions) {
		ms.Status = StatusCompleted
	}
	if err := m.sessions.Update(ctx, ms); err != nil {
		return nil, err
	}

	return &SubmitResult{
		Evaluation:   ev,
		NextQuestion: viewOf(ms, ms.CurrentIndex),
		IsComplete:   ms.Status == StatusCompleted,
		Progress:     Progress{Answered: len(ms.Answers), Total: len(ms.Questions)},
	}, nil
}

// Finalize builds and attaches the session report. It is allowed once,
// from in_progress (partial report) or completed.
func (m *Machine) Finalize(ctx context.Context, userID, sessionID string) (*Report, error) {
	ms, err := m.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if ms.Status == StatusFinalized {
		return nil, fmt.Errorf("%w: session already finalized", ErrInvalidState)
	}

	report := BuildReport(ms, m.now())
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	ms.Report = data
	ms.Status = StatusFinalized
	if err := m.sessions.Update(ctx, ms); err != nil {
		return nil, err
	}

	m.logger.Info("interview finalized", "session", ms.ID, "score", report.OverallScore, "readiness", report.Readiness)
	return report, nil
}

// Report returns the stored report of a finalized session.
func (m *Machine) Report(ctx context.Context, userID, sessionID string) (*Report, error) {
	ms, err := m.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if ms.Status != StatusFinalized || len(ms.Report) == 0 {
		return nil, fmt.Errorf("%w: session not finalized", ErrInvalidState)
	}
	var r Report
	if err := json.Unmarshal(ms.Report, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// BuildReport aggregates a session's answers with the fixed rubric.
func BuildReport(ms *store.MockSession, now time.Time) *Report {
	r := &Report{
		SessionID:   ms.ID,
		Subject:     ms.Subject,
		Answered:    len(ms.Answers),
		Total:       len(ms.Questions),
		Topics:      []TopicScore{},
		Strong:      []string{},
		Medium:      []string{},
		Weak:        []string{},
		GeneratedAt: now.UTC(),
	}

	type agg struct {
		sum float64
		n   int
	}
	byTopic := make(map[string]*agg)
	var total float64
	for _, a := range ms.Answers {
		s := Score(a.Evaluation.Level)
		total += s
		topic := a.Topic
		if topic == "" {
			topic = "general"
		}
		if byTopic[topic] == nil {
			byTopic[topic] = &agg{}
		}
		byTopic[topic].sum += s
		byTopic[topic].n++
	}
	if len(ms.Answers) > 0 {
		r.OverallScore = total / float64(len(ms.Answers))
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	for _, t := range topics {
		a := byTopic[t]
		ts := TopicScore{Topic: t, Average: a.sum / float64(a.n), Answered: a.n}
		ts.Bucket = Bucket(ts.Average)
		switch ts.Bucket {
		case BucketStrong:
			r.Strong = append(r.Strong, t)
		case BucketMedium:
			r.Medium = append(r.Medium, t)
		default:
			r.Weak = append(r.Weak, t)
		}
		r.Topics = append(r.Topics, ts)
	}

	r.Readiness, r.Feedback = Readiness(r.OverallScore)
	return r
}

// Bucket classifies a topic average.
func Bucket(avg float64) string {
	switch {
	case avg >= 80:
		return BucketStrong
	case avg >= 50:
		return BucketMedium
	default:
		return BucketWeak
	}
}

// Readiness maps an overall score to a label and a feedback line.
func Readiness(score float64) (label, feedback string) {
	switch {
	case score > 85:
		return ReadinessMidLevel, "Strong performance. You explain concepts with depth; polish edge cases and trade-offs."
	case score > 60:
		return ReadinessJunior, "Solid foundation. Work on completeness and on justifying your design choices."
	default:
		return ReadinessBeginner, "Keep practicing. Focus on core definitions and walk through examples out loud."
	}
}
