package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cleanlight/instant-sme/internal/core/domain"
	"github.com/cleanlight/instant-sme/internal/core/ports"
)

// Server exposes ask, bundle and hint as MCP tools over stdio so agent
// runtimes can call the engine without the HTTP surface.
type Server struct {
	mcpServer *server.MCPServer
	answers   ports.AnswerService
	hints     ports.HintsService
	logger    *slog.Logger
}

func NewServer(answers ports.AnswerService, hints ports.HintsService, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcpServer: server.NewMCPServer("instant-sme", version),
		answers:   answers,
		hints:     hints,
		logger:    logger,
	}

	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the knowledge store with citations and a calibrated confidence."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer.")),
		mcp.WithString("strategy", mcp.Description("Informational strategy name, echoed into the request.")),
		mcp.WithNumber("beam", mcp.Description("Lateral expansion beam width, 1 to 4.")),
		mcp.WithBoolean("return_trace", mcp.Description("Include the retrieval call trace.")),
		mcp.WithNumber("citations_max", mcp.Description("Upper bound on returned citations.")),
		mcp.WithNumber("chunk_text_max", mcp.Description("Character budget per chunk text.")),
	)
	s.mcpServer.AddTool(askTool, s.handleAsk)

	bundleTool := mcp.NewTool("bundle",
		mcp.WithDescription("Retrieve a layered evidence bundle (subjects, documents, graph nodes, chunks) for a topic."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The topic to bundle evidence for.")),
		mcp.WithNumber("l3", mcp.Description("How many chunks to keep.")),
		mcp.WithNumber("chunk_text_max", mcp.Description("Character budget per chunk text.")),
	)
	s.mcpServer.AddTool(bundleTool, s.handleBundle)

	hintTool := mcp.NewTool("hint",
		mcp.WithDescription("Describe store capabilities, coverage and recommended call shapes."),
		mcp.WithString("question", mcp.Description("Optional question to seed the recommendations.")),
		mcp.WithString("doc_pattern", mcp.Description("Optional label pattern for graph-node lookups.")),
	)
	s.mcpServer.AddTool(hintTool, s.handleHint)

	return s
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := domain.AskRequest{
		Question:     question,
		Strategy:     request.GetString("strategy", ""),
		Beam:         request.GetInt("beam", 0),
		CitationsMax: request.GetInt("citations_max", 0),
		ChunkTextMax: request.GetInt("chunk_text_max", 0),
	}
	if returnTrace := request.GetBool("return_trace", true); !returnTrace {
		req.ReturnTrace = &returnTrace
	}

	pack, err := s.answers.Ask(ctx, req)
	if err != nil {
		s.logger.Error("mcp_ask_failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("ask: %v", err)), nil
	}
	return jsonToolResult(pack)
}

func (s *Server) handleBundle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limits := domain.BundleLimits{
		Chunks:       request.GetInt("l3", 0),
		ChunkTextMax: request.GetInt("chunk_text_max", 0),
	}
	bundle, err := s.answers.Bundle(ctx, topic, limits)
	if err != nil {
		s.logger.Error("mcp_bundle_failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("bundle: %v", err)), nil
	}
	return jsonToolResult(bundle)
}

func (s *Server) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hints, err := s.hints.BuildHints(ctx,
		request.GetString("question", ""),
		request.GetString("doc_pattern", ""),
	)
	if err != nil {
		s.logger.Error("mcp_hint_failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("hint: %v", err)), nil
	}
	return jsonToolResult(hints)
}

func jsonToolResult(payload any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
