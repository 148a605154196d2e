package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gennadis/tripchat/internal/chat"
	"github.com/gennadis/tripchat/internal/config"
)

const (
	JSONContentType        = "application/json"
	EventStreamContentType = "text/event-stream"

	messagesPath    = "/api/messages"
	maxErrorBodyLen = 4 * 1024
)

// TransportError is a failed request: a non-2xx status, a missing body, or
// a connection failure before the stream started.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("Api request failed: status code %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("Api request failed: status code %d", e.StatusCode)
	default:
		return fmt.Sprintf("Api request failed: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg config.Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout

	return &Client{
		// no overall timeout: the response body is a long-lived stream
		httpClient: &http.Client{Transport: transport},
		baseURL:    cfg.BaseURL,
	}
}

// PostMessage sends a user message and returns the event stream of the
// assistant's reply. The caller must Close the stream.
func (c *Client) PostMessage(ctx context.Context, sessionID, content string) (*Stream, error) {
	reqBytes, err := json.Marshal(chat.MessageRequest{
		SessionID: sessionID,
		Role:      chat.ChatRoleUser,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(reqBytes))
	if err != nil {
		slog.Error("Failed to build send request", "error", err)
		return nil, err
	}
	req.Header.Set("Content-Type", JSONContentType)
	req.Header.Set("Accept", EventStreamContentType)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	res, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send request", "error", err)
		return nil, &TransportError{Err: err}
	}

	if err := handleApiError(res); err != nil {
		res.Body.Close()
		slog.Error("Failed to post message", "error", err)
		return nil, err
	}
	if res.Body == nil || res.Body == http.NoBody {
		return nil, &TransportError{StatusCode: res.StatusCode, Err: fmt.Errorf("no response body")}
	}

	slog.Debug("message stream opened",
		slog.String("session_id", sessionID),
		slog.Int("status", res.StatusCode),
	)
	return newStream(res.Body), nil
}

// FetchMessages returns the server's record of a session's messages
func (c *Client) FetchMessages(ctx context.Context, sessionID string) ([]chat.HistoryMessage, error) {
	historyPath := c.baseURL + messagesPath + "/" + url.PathEscape(sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, historyPath, nil)
	if err != nil {
		slog.Error("Failed to build history request", "error", err)
		return nil, err
	}
	req.Header.Set("Accept", JSONContentType)

	res, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send history request", "error", err)
		return nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	if err := handleApiError(res); err != nil {
		slog.Error("Failed to fetch messages", "error", err)
		return nil, err
	}

	messages := []chat.HistoryMessage{}
	if err := json.NewDecoder(res.Body).Decode(&messages); err != nil {
		slog.Error("Failed to unmarshal history response body", "error", err)
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return messages, nil
}

func handleApiError(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	var body []byte
	if res.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(res.Body, maxErrorBodyLen))
	}
	return &TransportError{
		StatusCode: res.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
	}
}
