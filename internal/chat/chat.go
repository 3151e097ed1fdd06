// Package chat is the tutor's request entry point. It checks identity and
// quota, runs the answer pipeline and schedules the background analysis of
// each turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/mentorloop/internal/behavior"
	"github.com/abhisek/mentorloop/internal/generation"
	"github.com/abhisek/mentorloop/internal/observer"
	"github.com/abhisek/mentorloop/internal/retrieval"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrAuth reports a missing caller identity.
	ErrAuth = errors.New("chat: missing user identity")

	// ErrValidation reports a malformed message list.
	ErrValidation = errors.New("chat: invalid request")

	// ErrQuotaExceeded reports that the learner used up today's requests.
	ErrQuotaExceeded = errors.New("chat: daily quota exceeded")
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config controls quota and profiling cadence.
type Config struct {
	// DailyQuota is the number of turns a learner may start per UTC day.
	DailyQuota int `yaml:"daily_quota"`

	// ProfileEvery triggers a profile update on every Nth turn of the day.
	ProfileEvery int `yaml:"profile_every"`

	// ProfileWindow is how many recent turns feed a profile update.
	ProfileWindow int `yaml:"profile_window"`
}

// DefaultConfig returns the default chat limits.
func DefaultConfig() Config {
	return Config{DailyQuota: 500, ProfileEvery: 5, ProfileWindow: 10}
}

// Retriever produces the retrieval context of a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, profile *store.LearnerProfile) *retrieval.Result
}

// Adapter derives generation behavior.
type Adapter interface {
	Adapt(ctx context.Context, profile *store.LearnerProfile, res *retrieval.Result) behavior.Behavior
}

// Generator streams the answer.
type Generator interface {
	Stream(ctx context.Context, query string, b behavior.Behavior, sink generation.Sink) generation.Outcome
	Fail(sink generation.Sink, cause error) generation.Outcome
}

// Dispatcher schedules turn analysis.
type Dispatcher interface {
	Dispatch(in observer.Interaction)
}

// ProfileUpdater refreshes a learner profile from recent interactions.
type ProfileUpdater interface {
	Update(ctx context.Context, userID string, interactions []string) (*store.LearnerProfile, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Profiles  store.ProfileRepo
	Usage     store.UsageRepo
	Turns     store.TurnRepo
	Retriever Retriever
	Adapter   Adapter
	Generator Generator
	Observer  Dispatcher
	Profiler  ProfileUpdater
	Queue     observer.Submitter
}

// Request is one chat turn.
type Request struct {
	UserID string

	// SessionID groups turns of one conversation. A new one is assigned
	// when empty.
	SessionID string

	Messages []Message
}

// Reply summarizes a handled turn.
type Reply struct {
	SessionID string
	Intent    string
	Outcome   generation.Outcome
}

// Service handles chat turns.
type Service struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Service.
func New(deps Deps, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.DailyQuota <= 0 {
		cfg.DailyQuota = def.DailyQuota
	}
	if cfg.ProfileEvery <= 0 {
		cfg.ProfileEvery = def.ProfileEvery
	}
	if cfg.ProfileWindow <= 0 {
		cfg.ProfileWindow = def.ProfileWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, cfg: cfg, logger: logger.With("component", "chat"), now: time.Now}
}

// Handle answers the last user message of messages, streaming to sink.
func (s *Service) Handle(ctx context.Context, userID string, messages []Message, sink generation.Sink) error {
	_, err := s.Serve(ctx, Request{UserID: userID, Messages: messages}, sink)
	return err
}

// Serve runs one turn. Identity, validation and quota errors are returned
// before anything is written and leave sink untouched. Once generation
// starts every failure is reported inside the stream and Serve returns nil.
func (s *Service) Serve(ctx context.Context, req Request, sink generation.Sink) (*Reply, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ErrAuth
	}
	query, err := lastUserMessage(req.Messages)
	if err != nil {
		return nil, err
	}

	day := s.now().UTC().Format(time.DateOnly)
	count, ok, err := s.deps.Usage.Increment(ctx, userID, day, s.cfg.DailyQuota)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d requests on %s", ErrQuotaExceeded, s.cfg.DailyQuota, day)
	}

	reply := &Reply{SessionID: req.SessionID}
	if reply.SessionID == "" {
		reply.SessionID = uuid.NewString()
	}

	profile, err := s.deps.Profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrStoreClosed) {
		reply.Outcome = s.deps.Generator.Fail(sink, err)
		return reply, nil
	}
	if err != nil {
		s.logger.Warn("load profile, answering without one", "user", userID, "error", err)
		profile = nil
	}

	res := s.deps.Retriever.Retrieve(ctx, query, profile)
	b := s.deps.Adapter.Adapt(ctx, profile, res)
	reply.Intent = string(res.Intent)
	reply.Outcome = s.deps.Generator.Stream(ctx, query, b, sink)

	s.afterTurn(context.WithoutCancel(ctx), userID, reply.SessionID, query, res, reply.Outcome, count)
	return reply, nil
}

// afterTurn records the turn and schedules its analysis. It runs even when
// the caller went away, on whatever text was produced.
func (s *Service) afterTurn(ctx context.Context, userID, sessionID, query string, res *retrieval.Result, out generation.Outcome, count int) {
	if strings.TrimSpace(out.Answer) == "" {
		return
	}

	turn := &store.Turn{
		UserID:      userID,
		SessionID:   sessionID,
		Intent:      string(res.Intent),
		UserMessage: query,
		AIResponse:  out.Answer,
	}
	if err := s.deps.Turns.Append(ctx, turn); err != nil {
		s.logger.Warn("record chat turn", "user", userID, "error", err)
	}

	s.deps.Observer.Dispatch(observer.Interaction{
		UserID:              userID,
		SessionID:           sessionID,
		UserMessage:         query,
		AIResponse:          out.Answer,
		Intent:              string(res.Intent),
		RetrievalConfidence: res.Confidence,
	})

	if count%s.cfg.ProfileEvery == 0 {
		s.deps.Queue.Submit("profile-update", func(ctx context.Context) error {
			return s.refreshProfile(ctx, userID)
		})
	}
}

func (s *Service) refreshProfile(ctx context.Context, userID string) error {
	turns, err := s.deps.Turns.RecentByUser(ctx, userID, s.cfg.ProfileWindow)
	if err != nil {
		return fmt.Errorf("load recent turns: %w", err)
	}
	if _, err := s.deps.Profiler.Update(ctx, userID, Transcript(turns)); err != nil {
		return err
	}
	return nil
}

// Transcript renders turns, given newest first, as interaction texts in
// chronological order.
func Transcript(turns []store.Turn) []string {
	out := make([]string, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		out = append(out, fmt.Sprintf("Learner: %s\nTutor: %s", t.UserMessage, t.AIResponse))
	}
	return out
}

func lastUserMessage(messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrValidation)
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return "", fmt.Errorf("%w: last message must come from the user", ErrValidation)
	}
	text := strings.TrimSpace(last.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty message", ErrValidation)
	}
	return text, nil
}
