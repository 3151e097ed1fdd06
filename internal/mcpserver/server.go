// Package mcpserver exposes the tutor and mock interviews as MCP tools over
// stdio. The server has no session auth of its own, so every tool takes the
// learner's user_id explicitly.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/mentorloop/internal/chat"
	"github.com/abhisek/mentorloop/internal/generation"
	"github.com/abhisek/mentorloop/internal/interview"
	"github.com/abhisek/mentorloop/internal/observer"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tutor answers chat turns.
type Tutor interface {
	Serve(ctx context.Context, req chat.Request, sink generation.Sink) (*chat.Reply, error)
}

// Rater records explicit feedback.
type Rater interface {
	Record(ctx context.Context, r *store.FeedbackRating) error
}

// Interviewer runs mock interviews.
type Interviewer interface {
	Start(ctx context.Context, userID, subject string) (*interview.StartResult, error)
	Submit(ctx context.Context, userID, sessionID, answer string) (*interview.SubmitResult, error)
	Finalize(ctx context.Context, userID, sessionID string) (*interview.Report, error)
}

// ToolResult is the outcome of one tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

type handler func(ctx context.Context, args map[string]any) (*ToolResult, error)

// Server wraps an MCP server with the tutor tools.
type Server struct {
	tutor       Tutor
	rater       Rater
	interviewer Interviewer

	mcpServer *server.MCPServer
	handlers  map[string]handler
	tools     []ToolInfo
}

// NewServer creates a server with all tools registered.
func NewServer(tutor Tutor, rater Rater, interviewer Interviewer, version string) *Server {
	s := &Server{
		tutor:       tutor,
		rater:       rater,
		interviewer: interviewer,
		mcpServer:   server.NewMCPServer("mentorloop", version, server.WithToolCapabilities(true)),
		handlers:    make(map[string]handler),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdin and stdout until the client disconnects.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes one raw JSON-RPC message.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns the registered tools in registration order.
func (s *Server) ListTools() []ToolInfo {
	return s.tools
}

// CallTool invokes a tool directly, bypassing the protocol layer.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
	return h(ctx, args)
}

func (s *Server) add(tool mcp.Tool, h handler) {
	s.handlers[tool.Name] = h
	s.tools = append(s.tools, ToolInfo{Name: tool.Name, Description: tool.Description})
	s.mcpServer.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(res), nil
	})
}

func (s *Server) registerTools() {
	userID := mcp.WithString("user_id", mcp.Description("Identifier of the learner"), mcp.Required())

	s.add(mcp.NewTool("tutor_ask",
		mcp.WithDescription("Ask the tutor a question. The answer is grounded in ingested curriculum content and adapted to the learner's profile."),
		userID,
		mcp.WithString("message", mcp.Description("The learner's question"), mcp.Required()),
		mcp.WithString("session_id", mcp.Description("Conversation id returned by an earlier call (optional)")),
	), s.handleAsk)

	s.add(mcp.NewTool("tutor_feedback",
		mcp.WithDescription("Rate a tutor answer. Negative ratings are analyzed to improve future answers."),
		userID,
		mcp.WithString("rating", mcp.Description("up or down"), mcp.Required(), mcp.Enum("up", "down")),
		mcp.WithString("session_id", mcp.Description("Conversation id of the rated answer")),
		mcp.WithString("comment", mcp.Description("What was wrong or helpful")),
		mcp.WithString("user_message", mcp.Description("The question that was answered")),
		mcp.WithString("ai_response", mcp.Description("The rated answer")),
	), s.handleFeedback)

	s.add(mcp.NewTool("interview_start",
		mcp.WithDescription("Start a mock technical interview on a subject. Returns the session id and the first question."),
		userID,
		mcp.WithString("subject", mcp.Description("Interview subject, as used in the imported question bank"), mcp.Required()),
	), s.handleInterviewStart)

	s.add(mcp.NewTool("interview_submit",
		mcp.WithDescription("Submit an answer to the current interview question. Returns its evaluation and the next question."),
		userID,
		mcp.WithString("session_id", mcp.Description("Interview session id"), mcp.Required()),
		mcp.WithString("answer", mcp.Description("The candidate's answer"), mcp.Required()),
	), s.handleInterviewSubmit)

	s.add(mcp.NewTool("interview_finalize",
		mcp.WithDescription("Finish a mock interview and return the readiness report."),
		userID,
		mcp.WithString("session_id", mcp.Description("Interview session id"), mcp.Required()),
	), s.handleInterviewFinalize)
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: r.Content}},
		IsError: r.IsError,
	}
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

func jsonResult(v any) (*ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &ToolResult{Content: string(data)}, nil
}

// errorResult turns caller-facing errors into tool errors. Anything else is
// an internal failure and is returned as a protocol error.
func errorResult(err error) (*ToolResult, error) {
	for _, known := range []error{
		chat.ErrAuth, chat.ErrValidation, chat.ErrQuotaExceeded,
		interview.ErrNoContent, interview.ErrSessionNotFound, interview.ErrValidation, interview.ErrInvalidState,
		observer.ErrInvalidRating,
	} {
		if errors.Is(err, known) {
			return &ToolResult{Content: err.Error(), IsError: true}, nil
		}
	}
	return nil, err
}

type askResult struct {
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
	Answer    string `json:"answer"`
}

func (s *Server) handleAsk(ctx context.Context, args map[string]any) (*ToolResult, error) {
	sink := &generation.BufferSink{}
	reply, err := s.tutor.Serve(ctx, chat.Request{
		UserID:    stringArg(args, "user_id"),
		SessionID: stringArg(args, "session_id"),
		Messages:  []chat.Message{{Role: chat.RoleUser, Content: stringArg(args, "message")}},
	}, sink)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(askResult{SessionID: reply.SessionID, Intent: reply.Intent, Answer: sink.String()})
}

func (s *Server) handleFeedback(ctx context.Context, args map[string]any) (*ToolResult, error) {
	user := stringArg(args, "user_id")
	if user == "" {
		return errorResult(chat.ErrAuth)
	}
	var rating int
	switch stringArg(args, "rating") {
	case "up":
		rating = observer.ThumbsUp
	case "down":
		rating = observer.ThumbsDown
	}
	r := &store.FeedbackRating{
		UserID:      user,
		SessionID:   stringArg(args, "session_id"),
		Rating:      rating,
		Comment:     stringArg(args, "comment"),
		UserMessage: stringArg(args, "user_message"),
		AIResponse:  stringArg(args, "ai_response"),
	}
	if err := s.rater.Record(ctx, r); err != nil {
		return errorResult(err)
	}
	return &ToolResult{Content: fmt.Sprintf("feedback %s recorded", r.ID)}, nil
}

func (s *Server) handleInterviewStart(ctx context.Context, args map[string]any) (*ToolResult, error) {
	res, err := s.interviewer.Start(ctx, stringArg(args, "user_id"), stringArg(args, "subject"))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) handleInterviewSubmit(ctx context.Context, args map[string]any) (*ToolResult, error) {
	// The answer is passed as given; the machine applies its own trimming.
	answer, _ := args["answer"].(string)
	res, err := s.interviewer.Submit(ctx, stringArg(args, "user_id"), stringArg(args, "session_id"), answer)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) handleInterviewFinalize(ctx context.Context, args map[string]any) (*ToolResult, error) {
	res, err := s.interviewer.Finalize(ctx, stringArg(args, "user_id"), stringArg(args, "session_id"))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}
