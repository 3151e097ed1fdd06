package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// IntentDistribution is the share of a learner's turns per intent family,
// intended to sum to roughly 100.
type IntentDistribution struct {
	Learning    float64 `json:"learning"`
	Revision    float64 `json:"revision"`
	Interview   float64 `json:"interview"`
	Exploration float64 `json:"exploration"`
}

// LearnerProfile is the inferred, persisted model of one learner.
type LearnerProfile struct {
	UserID              string             `json:"-"`
	SkillLevel          string             `json:"skill_level"`
	LearningStyle       string             `json:"learning_style"`
	ConfidenceLevel     string             `json:"confidence_level"`
	IntentDistribution  IntentDistribution `json:"intent_distribution"`
	WeakConceptClusters []string           `json:"weak_concept_clusters"`
	LastUpdated         time.Time          `json:"-"`
}

// ProfileRepo stores one profile per learner.
type ProfileRepo interface {
	// Get returns the learner's profile, or nil if none exists yet.
	Get(ctx context.Context, userID string) (*LearnerProfile, error)

	// Put creates or overwrites the learner's profile.
	Put(ctx context.Context, p *LearnerProfile) error
}

// SignalMetrics are the per-turn observations made by the learning observer.
type SignalMetrics struct {
	QuestionDifficulty      string  `json:"question_difficulty"`
	RetrievalConfidence     float64 `json:"retrieval_confidence"`
	DetectedConfusion       bool    `json:"detected_confusion"`
	ExplanationQualityScore int     `json:"explanation_quality_score"`
	ContentCoverageGap      bool    `json:"content_coverage_gap"`
}

// SignalContext locates a signal in the curriculum.
type SignalContext struct {
	Topic  string `json:"topic"`
	Intent string `json:"intent"`
}

// LearningSignal is one append-only observation of a chat turn.
type LearningSignal struct {
	ID        string
	Sequence  int64
	SessionID string
	UserID    string
	Timestamp time.Time
	Metrics   SignalMetrics
	Context   SignalContext
}

// SystemImprovement is a structured complaint derived from negative feedback.
type SystemImprovement struct {
	ID              string
	ImprovementType string
	AffectedTopic   string
	SuggestedFix    string
	PriorityLevel   string
	FeedbackID      string
	UserID          string
	SessionID       string
	CreatedAt       time.Time
}

// SignalRepo appends and reads the learning signal and improvement logs.
type SignalRepo interface {
	// AppendSignal assigns ID, sequence and timestamp when unset.
	AppendSignal(ctx context.Context, sig *LearningSignal) error

	// RecentSignals returns up to limit signals, newest first.
	RecentSignals(ctx context.Context, limit int) ([]LearningSignal, error)

	// AppendImprovement assigns ID and timestamp when unset.
	AppendImprovement(ctx context.Context, imp *SystemImprovement) error

	// RecentImprovements returns up to limit improvements, newest first.
	RecentImprovements(ctx context.Context, limit int) ([]SystemImprovement, error)
}

// FeedbackRating is an explicit thumbs up (+1) or down (-1) on an answer.
type FeedbackRating struct {
	ID          string
	UserID      string
	SessionID   string
	Rating      int
	Comment     string
	UserMessage string
	AIResponse  string
	CreatedAt   time.Time
}

// FeedbackRepo stores explicit ratings.
type FeedbackRepo interface {
	// Append assigns ID and timestamp when unset.
	Append(ctx context.Context, r *FeedbackRating) error
	Recent(ctx context.Context, limit int) ([]FeedbackRating, error)
}

// ArtifactRecord is one immutable runtime artifact version.
type ArtifactRecord struct {
	Version   string
	CreatedAt time.Time
	Data      json.RawMessage
}

// ArtifactRepo keeps the versioned runtime configuration: an immutable
// history plus a single "latest" pointer.
type ArtifactRepo interface {
	// Publish stores the version and moves the latest pointer to it.
	Publish(ctx context.Context, rec ArtifactRecord) error

	// Latest returns the artifact the pointer references, or nil if none.
	Latest(ctx context.Context) (*ArtifactRecord, error)

	// Get returns a specific version or ErrNotFound.
	Get(ctx context.Context, version string) (*ArtifactRecord, error)

	// List returns up to limit versions, newest first.
	List(ctx context.Context, limit int) ([]ArtifactRecord, error)
}

// Question is one interview question from the content bank.
type Question struct {
	ID             string   `json:"id" yaml:"id"`
	Subject        string   `json:"subject" yaml:"subject"`
	Text           string   `json:"text" yaml:"text"`
	Difficulty     string   `json:"difficulty" yaml:"difficulty"`
	Topic          string   `json:"topic" yaml:"topic"`
	AnswerVariants []string `json:"answer_variants" yaml:"answer_variants"`
}

// QuestionRepo stores the interview question bank.
type QuestionRepo interface {
	// Upsert inserts or replaces questions by ID and returns how many were written.
	Upsert(ctx context.Context, qs []Question) (int, error)

	// BySubject returns every question for subject in ID order.
	BySubject(ctx context.Context, subject string) ([]Question, error)
}

// Evaluation is the graded outcome of one interview answer.
type Evaluation struct {
	Level           string   `json:"level"`
	Strengths       []string `json:"strengths"`
	MissingConcepts []string `json:"missingConcepts"`
	Suggestions     []string `json:"suggestions"`
	LogicFlow       string   `json:"logicFlow"`
}

// AnswerRecord is one (question, answer, evaluation) tuple.
type AnswerRecord struct {
	QuestionID string     `json:"question_id"`
	Question   string     `json:"question"`
	Topic      string     `json:"topic"`
	UserAnswer string     `json:"user_answer"`
	Evaluation Evaluation `json:"evaluation"`
	Timestamp  time.Time  `json:"timestamp"`
}

// MockSession is the persisted state of one mock interview.
type MockSession struct {
	ID           string
	UserID       string
	Subject      string
	Questions    []Question
	CurrentIndex int
	Answers      []AnswerRecord
	Status       string
	Report       json.RawMessage
	Revision     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionRepo stores mock interview sessions keyed by ID.
type SessionRepo interface {
	Create(ctx context.Context, s *MockSession) error

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*MockSession, error)

	// Update writes s if its Revision still matches the stored one, then
	// bumps s.Revision. A lost race returns ErrConflict.
	Update(ctx context.Context, s *MockSession) error
}

// Chunk is one piece of curriculum content with its embedding.
type Chunk struct {
	ID          string
	Source      string
	Type        string
	Content     string
	ContentHash string
	Embedding   []byte
	UpdatedAt   time.Time
}

// ChunkRepo stores curriculum chunks for the vector store.
type ChunkRepo interface {
	Upsert(ctx context.Context, c Chunk) error

	// Hashes returns the content hash of every chunk from source, keyed by ID.
	Hashes(ctx context.Context, source string) (map[string]string, error)

	// All returns every stored chunk.
	All(ctx context.Context) ([]Chunk, error)

	Delete(ctx context.Context, ids ...string) error
	Count(ctx context.Context) (int, error)
}

// UsageRepo counts requests per learner per UTC day.
type UsageRepo interface {
	// Increment adds one to the counter unless it already reached limit.
	// It reports the new count and whether the increment happened.
	Increment(ctx context.Context, userID, day string, limit int) (int, bool, error)

	// Count returns the current counter value (0 if none).
	Count(ctx context.Context, userID, day string) (int, error)
}

// Turn is one completed chat exchange, kept as profiling input.
type Turn struct {
	ID          string
	Sequence    int64
	UserID      string
	SessionID   string
	Timestamp   time.Time
	Intent      string
	UserMessage string
	AIResponse  string
}

// TurnRepo stores chat exchanges.
type TurnRepo interface {
	// Append assigns ID, sequence and timestamp when unset.
	Append(ctx context.Context, t *Turn) error

	// RecentByUser returns up to limit turns of one learner, newest first.
	RecentByUser(ctx context.Context, userID string, limit int) ([]Turn, error)
}
