package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"invest-signals/internal/store"
	"invest-signals/internal/trace"
)

// Client talks to the Anthropic messages API over plain HTTP.
type Client struct {
	cfg      *store.Config
	endpoint string
}

// New creates a Claude client. The endpoint can be overridden for proxies
// via CLAUDE_API_ENDPOINT.
func New(cfg *store.Config) *Client {
	endpoint := "https://api.anthropic.com/v1/messages"
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Client{cfg: cfg, endpoint: endpoint}
}

func (c *Client) Provider() string { return "claude" }

// Complete sends one system+user exchange and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return "", errors.New("CLAUDE_API_KEY missing")
	}

	reqBody := map[string]any{
		"model":  c.cfg.LLM.Model,
		"system": system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
		"max_tokens":  c.cfg.LLM.MaxTokens,
		"temperature": c.cfg.LLM.Temperature,
	}

	bb, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(bb))
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("claude http %d: %s", resp.StatusCode, string(body))
	}

	respBytes, _ := io.ReadAll(resp.Body)

	// Messages API shape: {"content":[{"type":"text","text":"..."}]}
	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBytes, &parsed); err == nil {
		var texts []string
		for _, c := range parsed.Content {
			if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
				texts = append(texts, c.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n"), nil
		}
	}

	// Fall back to drilling common fields on older or proxied shapes.
	var anyResp any
	if err := json.Unmarshal(respBytes, &anyResp); err == nil {
		if m, ok := anyResp.(map[string]any); ok {
			for _, k := range []string{"completion", "output", "output_text", "completion_text", "result"} {
				if v, exists := m[k]; exists {
					if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
						return s, nil
					}
				}
			}
		}
	}

	// Raw body as a last resort; the caller's JSON extractor handles prose.
	return string(respBytes), nil
}
