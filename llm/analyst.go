package llm

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kirollos2001/Data-mind/config"
)

//go:embed prompts/system_prompt.txt
var systemPrompt string

// Analyst drives a multi-turn analysis conversation: it seeds sessions with
// the dataset summary, asks the model for code plus analysis, and feeds
// execution output back for verification turns.
type Analyst struct {
	client Client
	logger *zap.Logger
	prompt string
}

// NewAnalyst builds an analyst on top of a completion client.
func NewAnalyst(client Client, logger *zap.Logger) *Analyst {
	return &Analyst{
		client: client,
		logger: logger,
		prompt: strings.TrimSpace(systemPrompt),
	}
}

// NewFromConfig builds the analyst from application configuration. It
// returns ErrMissingAPIKey when the configured environment variable is
// unset, so callers can run without the analyst rather than failing.
func NewFromConfig(logger *zap.Logger, cfg *config.Config) (*Analyst, error) {
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w (%s)", ErrMissingAPIKey, cfg.LLM.APIKeyEnv)
	}
	client := NewOpenAIClient(cfg.LLM.BaseURL, apiKey, cfg.LLM.Model, cfg.LLM.Temperature)
	return NewAnalyst(client, logger), nil
}

// Ask sends a user query against the given dataset summary. When the session
// has not been seeded, or was seeded with a different summary, the history is
// reset and reseeded first.
func (a *Analyst) Ask(ctx context.Context, sess *Session, query, dataSummary string) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("llm: user query must not be empty")
	}
	if strings.TrimSpace(dataSummary) == "" {
		return nil, fmt.Errorf("llm: dataset summary must not be empty")
	}

	if sess.Summary() != dataSummary {
		sess.Reset()
		sess.seed(a.prompt, dataSummary)
		a.logger.Debug("seeded analyst session", zap.String("session_id", sess.ID))
	}

	return a.send(ctx, sess, UserMessage("User request: "+query))
}

// SendExecutionResults feeds sandbox output back into the conversation and
// asks for the final analysis. The session must have been used with Ask first.
func (a *Analyst) SendExecutionResults(ctx context.Context, sess *Session, output string) (*Response, error) {
	if len(sess.History()) == 0 {
		return nil, fmt.Errorf("llm: session has no history; call Ask first")
	}
	msg := fmt.Sprintf("Execution results:\n```\n%s\n```\n\nNow provide the complete analysis based on these results.", output)
	return a.send(ctx, sess, UserMessage(msg))
}

func (a *Analyst) send(ctx context.Context, sess *Session, msg Message) (*Response, error) {
	sess.append(msg)
	content, err := a.client.Complete(ctx, sess.History())
	if err != nil {
		return nil, err
	}
	sess.append(AssistantMessage(content))

	resp, err := parseResponse(content)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("analyst response",
		zap.String("session_id", sess.ID),
		zap.Bool("needs_verification", resp.NeedsVerification),
		zap.Int("code_len", len(resp.Code)))
	return resp, nil
}

func parseResponse(content string) (*Response, error) {
	raw := stripFences(content)

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &ResponseError{Reason: "failed to parse JSON", Err: err}
	}

	var missing []string
	for _, key := range []string{"analysis", "code", "suggestions"} {
		if _, ok := payload[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &ResponseError{Reason: "missing keys: " + strings.Join(missing, ", ")}
	}

	needsVerification, _ := payload["needs_verification"].(bool)

	return &Response{
		Analysis:          strings.TrimSpace(asString(payload["analysis"])),
		Code:              ExtractCode(asString(payload["code"])),
		Suggestions:       strings.TrimSpace(asString(payload["suggestions"])),
		NeedsVerification: needsVerification,
	}, nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ExtractCode strips markdown code fences and drops import/require lines for
// namespaces the sandbox already provides.
func ExtractCode(code string) string {
	code = stripFences(code)

	lines := strings.Split(code, "\n")
	filtered := lines[:0]
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "import ") ||
			strings.HasPrefix(stripped, "const ") && strings.Contains(stripped, "require(") ||
			strings.HasPrefix(stripped, "require(") {
			continue
		}
		filtered = append(filtered, line)
	}
	return strings.TrimSpace(strings.Join(filtered, "\n"))
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
