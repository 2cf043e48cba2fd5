package chatwidget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Agent answers a single user message.
type Agent interface {
	Reply(ctx context.Context, input string) (string, error)
}

type agentRequest struct {
	InputAsText string `json:"input_as_text"`
}

type agentResponse struct {
	OutputText string `json:"output_text"`
}

// AgentClient calls the support agent over HTTP. There is no retry.
type AgentClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewAgentClient returns a client for endpoint. A nil httpClient uses http.DefaultClient.
func NewAgentClient(endpoint string, httpClient *http.Client) *AgentClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AgentClient{endpoint: endpoint, httpClient: httpClient}
}

func (c *AgentClient) Reply(ctx context.Context, input string) (string, error) {
	body, err := json.Marshal(agentRequest{InputAsText: input})
	if err != nil {
		return "", fmt.Errorf("encode agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("agent responded with status %d", resp.StatusCode)
	}

	var out agentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode agent response: %w", err)
	}
	return out.OutputText, nil
}
