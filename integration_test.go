package integration

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kirollos2001/Data-mind/config"
	"github.com/kirollos2001/Data-mind/dataset"
	"github.com/kirollos2001/Data-mind/logger"
	"github.com/kirollos2001/Data-mind/mcpserver"
	"github.com/kirollos2001/Data-mind/sandbox"
)

func integrationConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Transport: "stdio",
			HTTPPort:  8080,
		},
		Sandbox: config.SandboxConfig{
			Engine:          "js",
			TimeoutSec:      5,
			MaxTraceFrames:  4,
			MaxCollectDepth: 32,
		},
		LLM: config.LLMConfig{
			Model:       "test-model",
			Temperature: 0.2,
		},
		Dataset: config.DatasetConfig{
			MaxRows: 1000,
		},
		Logging: config.LoggingConfig{
			Mode:  "development",
			Level: "debug",
		},
	}
}

// TestIntegrationConfigLoggerSandbox tests the integration between config, logger, and sandbox packages
func TestIntegrationConfigLoggerSandbox(t *testing.T) {
	t.Run("ConfigAndLoggerIntegration", func(t *testing.T) {
		cfg := integrationConfig()

		testLogger, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
		require.NoError(t, err)
		require.NotNil(t, testLogger)

		testLogger.Info("Integration test started")
		_ = testLogger.Sync()
	})

	t.Run("ConfigLoggerSandboxFactoryIntegration", func(t *testing.T) {
		cfg := integrationConfig()

		testLogger, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
		require.NoError(t, err)

		executor, err := sandbox.NewFromConfig(testLogger, cfg)
		require.NoError(t, err)
		require.NotNil(t, executor)
	})

	t.Run("UnsupportedEngineRejected", func(t *testing.T) {
		cfg := integrationConfig()
		cfg.Sandbox.Engine = "python"

		testLogger := zaptest.NewLogger(t)
		_, err := sandbox.NewFromConfig(testLogger, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported engine")
	})

	t.Run("FullMCPIntegration", func(t *testing.T) {
		cfg := integrationConfig()

		mcpLogger, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
		require.NoError(t, err)

		executor, err := sandbox.NewFromConfig(mcpLogger, cfg)
		require.NoError(t, err)

		server, err := mcpserver.New(cfg, mcpLogger, executor, nil)
		require.NoError(t, err)
		require.NotNil(t, server)

		mcpServer := server.GetMCPServer()
		require.NotNil(t, mcpServer)
	})
}

// TestIntegrationAnalysisExecution runs real analysis code through the full
// stack: CSV parsing, the restricted interpreter, and artifact collection.
func TestIntegrationAnalysisExecution(t *testing.T) {
	testLogger := zaptest.NewLogger(t)
	cfg := integrationConfig()

	executor, err := sandbox.NewFromConfig(testLogger, cfg)
	require.NoError(t, err)

	csv := "city,sales\ncairo,100\ngiza,250\ncairo,50\n"

	t.Run("EndToEndAnalysis", func(t *testing.T) {
		ds, err := dataset.ParseCSV(strings.NewReader(csv), cfg.Dataset.MaxRows)
		require.NoError(t, err)

		result := executor.Execute(context.Background(), `
let byCity = df.groupBy("city", "sum", "sales");
let chart = plot.bar(byCity, {x: "city", y: "sales_sum", title: "Sales by city"});
print("total:", df.sum("sales"));
`, ds)

		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Equal(t, "total: 400", result.Stdout)
		require.Len(t, result.Charts, 1)
		require.Len(t, result.Tables, 1)
		assert.Equal(t, 2, result.Tables[0].NumRows())
	})

	t.Run("ThroughMCPHandler", func(t *testing.T) {
		server, err := mcpserver.New(cfg, testLogger, executor, nil)
		require.NoError(t, err)

		// Drive the registered tool end to end via the MCP server.
		raw, err := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "tools/call",
			"params": map[string]any{
				"name": "execute_analysis_code",
				"arguments": map[string]any{
					"code":        `print(df.numRows());`,
					"dataset_csv": csv,
				},
			},
		})
		require.NoError(t, err)

		respMsg := server.GetMCPServer().HandleMessage(context.Background(), raw)
		resp, err := json.Marshal(respMsg)
		require.NoError(t, err)

		var envelope struct {
			Result struct {
				Content []mcp.TextContent `json:"content"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(resp, &envelope))
		require.NotEmpty(t, envelope.Result.Content)

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(envelope.Result.Content[0].Text), &payload))
		assert.Equal(t, "3", payload["stdout"])
	})
}
