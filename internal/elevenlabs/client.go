package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultAppURL  = "https://elevenlabs.io/app/talk-to"
)

// APIError is returned for any non-2xx response from the ElevenLabs API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("elevenlabs api error: %d", e.StatusCode)
	}
	return fmt.Sprintf("elevenlabs api error: %d - %s", e.StatusCode, e.Body)
}

type Client struct {
	apiKey  string
	baseURL string
	appURL  string
	client  *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithAppURL(u string) Option {
	return func(c *Client) { c.appURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		appURL:  defaultAppURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListConversations returns every conversation the API reports for the agent.
func (c *Client) ListConversations(ctx context.Context, agentID string) ([]ConversationSummary, error) {
	q := url.Values{}
	if agentID != "" {
		q.Set("agent_id", agentID)
	}

	var list conversationList
	if err := c.get(ctx, "/convai/conversations", q, &list); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if list.Conversations == nil {
		return []ConversationSummary{}, nil
	}
	return list.Conversations, nil
}

// GetConversation fetches a single conversation including its transcript.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	var conv Conversation
	if err := c.get(ctx, "/convai/conversations/"+url.PathEscape(conversationID), nil, &conv); err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

// TranscriptText fetches a conversation and renders its transcript as flat text.
func (c *Client) TranscriptText(ctx context.Context, conversationID string) (string, error) {
	conv, err := c.GetConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return FormatTranscript(conv.Transcript), nil
}

// InterviewURL is the public talk-to link stakeholders use to start an interview.
func (c *Client) InterviewURL(agentID string) string {
	return c.appURL + "?agent_id=" + url.QueryEscape(agentID)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
