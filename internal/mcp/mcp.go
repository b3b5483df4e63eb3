// Package mcp exposes the Overseer action log over the Model Context
// Protocol, so MCP-compatible agents (including the supervised agent's
// own tooling) can introspect their recorded history, stats, and review
// trends without scraping the dashboard API.
//
// The MCP surface is read-only: appends stay with the supervisor.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/overseerhq/overseer/internal/model"
	"github.com/overseerhq/overseer/internal/storage"
	"github.com/overseerhq/overseer/internal/trend"
)

// Server wraps the MCP server with the storage layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	store     *storage.Store
	logger    *slog.Logger
}

// New creates and configures an MCP server with all tools registered.
func New(store *storage.Store, logger *slog.Logger, version string) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"overseer",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// overseer_query_actions — browse the recorded action log.
	s.mcpServer.AddTool(
		mcplib.NewTool("overseer_query_actions",
			mcplib.WithDescription(`Query the supervised action log with structured filters.

Returns recorded agent actions newest first, each with its verdict
(pass/warn/block), risk tier, and verification-key validity.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("verdict",
				mcplib.Description("Filter by verdict: pass, warn, or block"),
			),
			mcplib.WithNumber("tier",
				mcplib.Description("Filter by risk tier (0-3)"),
				mcplib.Min(0),
				mcplib.Max(3),
			),
			mcplib.WithString("search",
				mcplib.Description("Case-insensitive substring matched against action type, target, or description"),
			),
			mcplib.WithString("since",
				mcplib.Description("Inclusive ISO-8601 lower bound on event timestamp"),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum results to return"),
				mcplib.Min(1),
				mcplib.Max(200),
				mcplib.DefaultNumber(20),
			),
		),
		s.handleQueryActions,
	)

	// overseer_session_stats — the dashboard's stat tiles as JSON.
	s.mcpServer.AddTool(
		mcplib.NewTool("overseer_session_stats",
			mcplib.WithDescription(`Get rollup statistics over the full action history: totals,
verified/blocked counts, tier breakdown, and today's spend.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleSessionStats,
	)

	// overseer_review_trends — day-bucketed review score trends.
	s.mcpServer.AddTool(
		mcplib.NewTool("overseer_review_trends",
			mcplib.WithDescription(`Get per-day session review score averages, the overall trend
direction (improving/declining/stable), and best/worst days.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithNumber("days",
				mcplib.Description("Review window in days"),
				mcplib.Min(1),
				mcplib.Max(365),
				mcplib.DefaultNumber(30),
			),
		),
		s.handleReviewTrends,
	)
}

func (s *Server) handleQueryActions(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	filter := model.EventFilter{
		Limit:   request.GetInt("limit", 20),
		Verdict: model.Verdict(request.GetString("verdict", "")),
		Search:  request.GetString("search", ""),
		Since:   request.GetString("since", ""),
	}
	if t := request.GetInt("tier", -1); t >= 0 {
		tier := model.Tier(t)
		if err := model.ValidateTier(tier); err != nil {
			return errorResult(err.Error()), nil
		}
		filter.Tier = &tier
	}
	if filter.Verdict != "" && filter.Verdict != model.VerdictAll {
		if _, err := model.ParseVerdict(string(filter.Verdict)); err != nil {
			return errorResult(err.Error()), nil
		}
	}

	actions, total, err := s.store.QueryEvents(ctx, filter)
	if err != nil {
		return errorResult(fmt.Sprintf("query failed: %v", err)), nil
	}
	if actions == nil {
		actions = []model.ActionEvent{}
	}

	return jsonResult(model.LogsResponse{Actions: actions, Total: total}), nil
}

func (s *Server) handleSessionStats(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	stats, err := s.store.SessionStats(ctx, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("stats failed: %v", err)), nil
	}
	return jsonResult(model.StatsResponse{
		SessionStats:   stats,
		SessionActions: stats.TotalActions,
	}), nil
}

func (s *Server) handleReviewTrends(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	days := request.GetInt("days", 30)
	if days <= 0 {
		days = 30
	}

	now := time.Now().UTC()
	reviews, err := s.store.ReviewsSince(ctx, now.AddDate(0, 0, -days).Format(time.RFC3339))
	if err != nil {
		return errorResult(fmt.Sprintf("trend query failed: %v", err)), nil
	}

	return jsonResult(trend.Analyze(reviews, now)), nil
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
