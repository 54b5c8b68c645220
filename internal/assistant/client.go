// Package assistant is the HTTP client for the external reasoning backend
// (an assistant-threads API). The backend owns conversation coherence; the
// caller only holds an opaque thread handle per member.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable collapses timeouts and backend errors into the single
// condition the messaging engine handles. The engine does not retry; retry
// policy belongs to the backend's own client configuration.
var ErrUnavailable = errors.New("reasoning backend unavailable")

// MemberContext personalizes the conversation without the backend having
// to re-resolve identity.
type MemberContext struct {
	MemberID    string
	DisplayName string
}

type Client struct {
	baseURL     string
	apiKey      string
	assistantID string
	http        *http.Client
	pollEvery   time.Duration
	logger      *slog.Logger
}

func NewClient(log *slog.Logger, baseURL, apiKey, assistantID string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		assistantID: assistantID,
		http:        &http.Client{Timeout: timeout},
		pollEvery:   500 * time.Millisecond,
		logger:      log.With(slog.String("service", "assistant")),
	}
}

type threadResponse struct {
	ID string `json:"id"`
}

// CreateThread opens a fresh conversation thread and returns its handle.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp threadResponse
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: empty thread id", ErrUnavailable)
	}
	return resp.ID, nil
}

type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type messageListResponse struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// Send appends the member's message to the thread, runs the assistant and
// returns its reply text.
func (c *Client) Send(ctx context.Context, threadID string, member MemberContext, text string) (string, error) {
	if strings.TrimSpace(threadID) == "" {
		return "", fmt.Errorf("thread id is required")
	}

	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", map[string]any{
		"role":    "user",
		"content": text,
	}, nil)
	if err != nil {
		return "", err
	}

	var run runResponse
	err = c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", map[string]any{
		"assistant_id": c.assistantID,
		"additional_instructions": fmt.Sprintf(
			"You are talking to %s (member id %s).", member.DisplayName, member.MemberID),
	}, &run)
	if err != nil {
		return "", err
	}

	if err := c.waitForRun(ctx, threadID, run); err != nil {
		return "", err
	}

	var messages messageListResponse
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages?limit=1", nil, &messages); err != nil {
		return "", err
	}
	for _, msg := range messages.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" && strings.TrimSpace(part.Text.Value) != "" {
				return part.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("%w: run finished without an assistant reply", ErrUnavailable)
}

func (c *Client) waitForRun(ctx context.Context, threadID string, run runResponse) error {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()
	for {
		switch run.Status {
		case "completed":
			return nil
		case "queued", "in_progress":
		default:
			return fmt.Errorf("%w: run ended with status %s", ErrUnavailable, run.Status)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-ticker.C:
		}
		if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+run.ID, nil, &run); err != nil {
			return err
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("assistant request failed",
			slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("assistant request rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(payload)),
		)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
