// Package mcpserver exposes the session service as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/grading"
	"github.com/abhisek/examcore/internal/session"
)

// Server wraps an MCP server with examcore tools.
type Server struct {
	svc       *session.Service
	mcpServer *server.MCPServer
}

// ToolResult is the outcome of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates an MCP server with the examcore tools registered.
func NewServer(svc *session.Service, version string) *Server {
	s := &Server{svc: svc}
	s.mcpServer = server.NewMCPServer(
		"examcore",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until EOF.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "examcore_queue", Description: "Build the next practice queue for a learner"},
		{Name: "examcore_submit", Description: "Grade an answer and reschedule the item"},
		{Name: "examcore_mastery", Description: "Report a learner's mastery by domain"},
		{Name: "examcore_item_status", Description: "Show where an item is in a learner's review cycle"},
	}
}

// CallTool executes a tool by name.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	switch name {
	case "examcore_queue":
		return s.handleQueue(ctx, args)
	case "examcore_submit":
		return s.handleSubmit(ctx, args)
	case "examcore_mastery":
		return s.handleMastery(ctx, args)
	case "examcore_item_status":
		return s.handleItemStatus(ctx, args)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("examcore_queue",
		mcp.WithDescription("Build the next practice queue for a learner. Items due for review come first, followed by items from the learner's weakest domains."),
		mcp.WithString("user_id",
			mcp.Description("Learner ID"),
			mcp.Required(),
		),
		mcp.WithNumber("size",
			mcp.Description("Number of items to return (default: configured target size)"),
		),
		mcp.WithNumber("weak_ratio",
			mcp.Description("Share of the queue reserved for weak domains, in (0, 1]"),
		),
		mcp.WithArray("domains",
			mcp.Description("Only consider items tagged with any of these domains"),
			mcp.WithStringItems(),
		),
	), s.wrap(s.handleQueue))

	s.mcpServer.AddTool(mcp.NewTool("examcore_submit",
		mcp.WithDescription("Grade a learner's answer to one item, reschedule the item and update domain mastery."),
		mcp.WithString("user_id",
			mcp.Description("Learner ID"),
			mcp.Required(),
		),
		mcp.WithString("item_id",
			mcp.Description("Catalog item ID"),
			mcp.Required(),
		),
		mcp.WithObject("answer",
			mcp.Description(`Answer payload, e.g. {"kind":"single_select","choice":"b"} or {"kind":"numeric","value":42}`),
			mcp.Required(),
		),
	), s.wrap(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("examcore_mastery",
		mcp.WithDescription("Report a learner's accuracy and attempt count per domain."),
		mcp.WithString("user_id",
			mcp.Description("Learner ID"),
			mcp.Required(),
		),
	), s.wrap(s.handleMastery))

	s.mcpServer.AddTool(mcp.NewTool("examcore_item_status",
		mcp.WithDescription("Show whether an item is new, scheduled or due for a learner."),
		mcp.WithString("user_id",
			mcp.Description("Learner ID"),
			mcp.Required(),
		),
		mcp.WithString("item_id",
			mcp.Description("Catalog item ID"),
			mcp.Required(),
		),
	), s.wrap(s.handleItemStatus))
}

type handler func(ctx context.Context, args map[string]any) (*ToolResult, error)

func (s *Server) wrap(h handler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: r.Content},
		},
		IsError: r.IsError,
	}
}

func (s *Server) handleQueue(ctx context.Context, args map[string]any) (*ToolResult, error) {
	req := session.QueueRequest{
		UserID:     stringArg(args, "user_id"),
		TargetSize: s.svc.Config().DefaultTargetSize,
		Domains:    toStringSlice(args["domains"]),
	}
	if n, ok := args["size"].(float64); ok {
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return failed("queue", apperr.Validation("size", "must be an integer, got %v", n)), nil
		}
		req.TargetSize = int(n)
	}
	if r, ok := args["weak_ratio"].(float64); ok {
		req.WeakRatio = &r
	}

	q, err := s.svc.GetSessionQueue(ctx, req)
	if err != nil {
		return failed("queue", err), nil
	}
	return jsonResult(q)
}

func (s *Server) handleSubmit(ctx context.Context, args map[string]any) (*ToolResult, error) {
	rawAnswer, ok := args["answer"]
	if !ok {
		return &ToolResult{Content: "answer is required", IsError: true}, nil
	}
	raw, err := json.Marshal(rawAnswer)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("encode answer: %v", err), IsError: true}, nil
	}
	answer, err := grading.ParseAnswer(raw)
	if err != nil {
		return failed("submit", err), nil
	}

	res, err := s.svc.SubmitAttempt(ctx, session.Attempt{
		UserID: stringArg(args, "user_id"),
		ItemID: stringArg(args, "item_id"),
		Answer: answer,
	})
	if err != nil {
		return failed("submit", err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleMastery(ctx context.Context, args map[string]any) (*ToolResult, error) {
	report, err := s.svc.GetMasteryReport(ctx, stringArg(args, "user_id"))
	if err != nil {
		return failed("mastery", err), nil
	}
	return jsonResult(report)
}

func (s *Server) handleItemStatus(ctx context.Context, args map[string]any) (*ToolResult, error) {
	st, err := s.svc.ItemStatus(ctx, stringArg(args, "user_id"), stringArg(args, "item_id"))
	if err != nil {
		return failed("item status", err), nil
	}
	return jsonResult(st)
}

func failed(op string, err error) *ToolResult {
	return &ToolResult{Content: fmt.Sprintf("%s failed: %v", op, err), IsError: true}
}

func jsonResult(v any) (*ToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &ToolResult{Content: string(b)}, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// toStringSlice accepts []any (as decoded from JSON) or []string.
func toStringSlice(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
