package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type ClientConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
}

// Client talks to the hosted agent runtime. Every operation is plain
// request/response; the streaming illusion lives in the research package.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	client     *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1"
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("agent runtime request failed: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("agent runtime request failed: %s", e.Status)
}

type AgentSpec struct {
	Model        string `json:"model"`
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	Tools        []Tool `json:"tools"`
}

func (c *Client) CreateAgent(ctx context.Context, spec AgentSpec) (*Agent, error) {
	agent := &Agent{}
	if err := c.do(ctx, http.MethodPost, "/assistants", spec, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodDelete, "/assistants/"+url.PathEscape(agentID), nil, nil)
}

func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	thread := &Thread{}
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error) {
	payload := map[string]string{
		"role":    role,
		"content": content,
	}
	message := &Message{}
	if err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/messages", payload, message); err != nil {
		return nil, err
	}
	return message, nil
}

func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	payload := map[string]string{
		"assistant_id": agentID,
	}
	run := &Run{}
	if err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/runs", payload, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run := &Run{}
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.do(ctx, http.MethodGet, path, nil, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListMessages returns the thread's messages newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	var parsed struct {
		Data []Message `json:"data"`
	}
	path := "/threads/" + url.PathEscape(threadID) + "/messages?order=desc"
	if err := c.do(ctx, http.MethodGet, path, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

// GetLastMessageByRole returns the most recent message authored by role,
// or nil when the thread has none. Absence is not an error.
func (c *Client) GetLastMessageByRole(ctx context.Context, threadID, role string) (*Message, error) {
	messages, err := c.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].Role == role {
			return &messages[i], nil
		}
	}
	return nil, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	if c.apiKey == "" {
		return errors.New("missing API key for agent runtime")
	}
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path+separator+"api-version="+c.apiVersion, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(detail)),
		}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
