package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kirollos2001/Data-mind/config"
	"github.com/kirollos2001/Data-mind/dataset"
	"github.com/kirollos2001/Data-mind/llm"
	"github.com/kirollos2001/Data-mind/sandbox"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	executor  sandbox.CodeExecutor
	analyst   *llm.Analyst // nil when no API key is configured
	mcpServer *server.MCPServer

	mu       sync.Mutex
	sessions map[string]*llm.Session
}

// New creates a new MCPServer. The analyst may be nil, in which case the
// ask_analyst tool reports that no API key is configured.
func New(cfg *config.Config, logger *zap.Logger, executor sandbox.CodeExecutor, analyst *llm.Analyst) (*MCPServer, error) {
	s := &MCPServer{
		config:   cfg,
		logger:   logger,
		executor: executor,
		analyst:  analyst,
		sessions: make(map[string]*llm.Session),
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("sandbox.engine", s.config.Sandbox.Engine),
		zap.Int("sandbox.timeout_sec", s.config.Sandbox.TimeoutSec),
		zap.Int("sandbox.max_trace_frames", s.config.Sandbox.MaxTraceFrames),
		zap.Int("sandbox.max_collect_depth", s.config.Sandbox.MaxCollectDepth),
		zap.String("llm.model", s.config.LLM.Model),
		zap.String("llm.base_url", s.config.LLM.BaseURL),
		zap.Bool("llm.configured", analyst != nil),
		zap.Int("dataset.max_rows", s.config.Dataset.MaxRows),
	)

	s.mcpServer = server.NewMCPServer("data-mind", "An AI-assisted data analysis server")

	s.registerExecuteAnalysisCodeTool()
	s.registerSummarizeDatasetTool()
	s.registerAskAnalystTool()

	return s, nil
}

// tablePayload and executionPayload are the wire shapes embedded in tool results.
type tablePayload struct {
	Columns []string         `json:"columns"`
	Records []map[string]any `json:"records"`
}

type executionPayload struct {
	Charts []*sandbox.Chart `json:"charts"`
	Tables []tablePayload   `json:"tables"`
	Stdout string           `json:"stdout"`
	Error  string           `json:"error,omitempty"`
}

func executionToPayload(result sandbox.Result) executionPayload {
	payload := executionPayload{
		Charts: result.Charts,
		Stdout: result.Stdout,
		Error:  result.Error,
	}
	if payload.Charts == nil {
		payload.Charts = []*sandbox.Chart{}
	}
	payload.Tables = make([]tablePayload, 0, len(result.Tables))
	for _, t := range result.Tables {
		payload.Tables = append(payload.Tables, tablePayload{
			Columns: t.Columns(),
			Records: t.Records(),
		})
	}
	return payload
}

// registerExecuteAnalysisCodeTool registers the execute_analysis_code tool
func (s *MCPServer) registerExecuteAnalysisCodeTool() {
	tool := mcp.Tool{
		Name:        "execute_analysis_code",
		Description: "Execute analysis code in a restricted sandbox against a CSV dataset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "JavaScript analysis code using the df/plot/print capabilities",
				},
				"dataset_csv": map[string]any{
					"type":        "string",
					"description": "CSV text with a header row; the dataset bound to df",
				},
			},
			Required: []string{"code", "dataset_csv"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecuteAnalysisCode)
}

// handleExecuteAnalysisCode handles the execute_analysis_code tool
func (s *MCPServer) handleExecuteAnalysisCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("code execution requested")

	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	ds, errResult := s.parseDataset(request)
	if errResult != nil {
		return errResult, nil
	}

	s.logger.Info("executing analysis code",
		zap.Int("code_len", len(code)),
		zap.Int("rows", ds.NumRows()),
		zap.Int("cols", ds.NumCols()))

	result := s.executor.Execute(ctx, code, ds)

	s.logger.Info("code execution completed",
		zap.Bool("success", result.Success()),
		zap.Int("charts", len(result.Charts)),
		zap.Int("tables", len(result.Tables)),
		zap.Int("stdout_len", len(result.Stdout)))

	return jsonResult(executionToPayload(result))
}

// registerSummarizeDatasetTool registers the summarize_dataset tool
func (s *MCPServer) registerSummarizeDatasetTool() {
	tool := mcp.Tool{
		Name:        "summarize_dataset",
		Description: "Profile a CSV dataset: shape, per-column kinds, missing counts and statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"dataset_csv": map[string]any{
					"type":        "string",
					"description": "CSV text with a header row",
				},
				"format": map[string]any{
					"type":        "string",
					"description": "Output format",
					"enum":        []string{"yaml", "text"},
				},
			},
			Required: []string{"dataset_csv"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleSummarizeDataset)
}

// handleSummarizeDataset handles the summarize_dataset tool
func (s *MCPServer) handleSummarizeDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ds, errResult := s.parseDataset(request)
	if errResult != nil {
		return errResult, nil
	}

	summary := dataset.Summarize(ds)

	s.logger.Info("dataset summarized",
		zap.Int("rows", summary.Rows),
		zap.Int("cols", summary.Cols))

	if request.GetString("format", "yaml") == "text" {
		return textResult(summary.Text), nil
	}

	out, err := yaml.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return textResult(string(out)), nil
}

// registerAskAnalystTool registers the ask_analyst tool
func (s *MCPServer) registerAskAnalystTool() {
	tool := mcp.Tool{
		Name:        "ask_analyst",
		Description: "Ask the AI analyst a question about a CSV dataset; returns analysis, code and execution results",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Natural-language question about the dataset",
				},
				"dataset_csv": map[string]any{
					"type":        "string",
					"description": "CSV text with a header row",
				},
				"session_id": map[string]any{
					"type":        "string",
					"description": "Conversation session to continue (optional)",
				},
			},
			Required: []string{"query", "dataset_csv"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleAskAnalyst)
}

type analystPayload struct {
	SessionID   string            `json:"session_id"`
	Analysis    string            `json:"analysis"`
	Suggestions string            `json:"suggestions"`
	Code        string            `json:"code"`
	Execution   *executionPayload `json:"execution,omitempty"`
}

// handleAskAnalyst handles the ask_analyst tool
func (s *MCPServer) handleAskAnalyst(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.analyst == nil {
		return errorResult("analyst is not configured: set the API key environment variable and restart"), nil
	}

	query, err := request.RequireString("query")
	if err != nil {
		return nil, fmt.Errorf("query parameter is required: %w", err)
	}

	ds, errResult := s.parseDataset(request)
	if errResult != nil {
		return errResult, nil
	}

	summary := dataset.Summarize(ds)
	sess := s.session(request.GetString("session_id", ""))

	s.logger.Info("analyst query",
		zap.String("session_id", sess.ID),
		zap.Int("query_len", len(query)))

	resp, err := s.analyst.Ask(ctx, sess, query, summary.Text)
	if err != nil {
		s.logger.Error("analyst query failed", zap.Error(err), zap.String("session_id", sess.ID))
		return errorResult(fmt.Sprintf("analyst query failed: %v", err)), nil
	}

	if resp.NeedsVerification && resp.Code != "" {
		resp, errResult = s.verify(ctx, sess, resp, ds)
		if errResult != nil {
			return errResult, nil
		}
	}

	payload := analystPayload{
		SessionID:   sess.ID,
		Analysis:    resp.Analysis,
		Suggestions: resp.Suggestions,
		Code:        resp.Code,
	}

	if resp.Code != "" {
		result := s.executor.Execute(ctx, resp.Code, ds)
		exec := executionToPayload(result)
		payload.Execution = &exec
	}

	return jsonResult(payload)
}

// verify runs the intermediate code and feeds its output back to the model,
// returning the follow-up response containing the final analysis.
func (s *MCPServer) verify(ctx context.Context, sess *llm.Session, resp *llm.Response, ds *dataset.Dataset) (*llm.Response, *mcp.CallToolResult) {
	result := s.executor.Execute(ctx, resp.Code, ds)
	if !result.Success() {
		s.logger.Warn("verification code failed",
			zap.String("session_id", sess.ID),
			zap.String("error", result.Error))
		return nil, errorResult("verification failed:\n" + result.Error)
	}

	output := strings.TrimSpace(result.Stdout)
	if output == "" && len(result.Tables) > 0 {
		output = result.Tables[0].String()
	}
	if output == "" {
		output = "Verification code executed successfully but produced no output."
	}

	final, err := s.analyst.SendExecutionResults(ctx, sess, output)
	if err != nil {
		s.logger.Error("verification follow-up failed", zap.Error(err), zap.String("session_id", sess.ID))
		return nil, errorResult(fmt.Sprintf("error processing verification results: %v", err))
	}
	return final, nil
}

// parseDataset extracts and parses the dataset_csv parameter.
func (s *MCPServer) parseDataset(request mcp.CallToolRequest) (*dataset.Dataset, *mcp.CallToolResult) {
	csvText, err := request.RequireString("dataset_csv")
	if err != nil {
		return nil, errorResult("dataset_csv parameter is required")
	}

	ds, err := dataset.ParseCSV(strings.NewReader(csvText), s.config.Dataset.MaxRows)
	if err != nil {
		s.logger.Warn("failed to parse dataset", zap.Error(err))
		return nil, errorResult(fmt.Sprintf("failed to parse dataset: %v", err))
	}
	return ds, nil
}

// session returns the session for id, creating one when id is "" or unknown.
func (s *MCPServer) session(id string) *llm.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess
		}
	}
	sess := llm.NewSession()
	s.sessions[sess.ID] = sess
	return sess
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return textResult(string(out)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
