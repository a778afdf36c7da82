package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumechat/internal/chat"
	"resumechat/internal/config"
	"resumechat/internal/identity"
	"resumechat/internal/observability"

	"github.com/google/uuid"
)

// ErrNoBody is returned when a successful response has nothing to stream.
var ErrNoBody = errors.New("response has no body")

// StatusError is a non-2xx reply from the chat service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	newID      func() string
}

// NewClient builds a client for cfg.APIURL. There is no overall timeout
// unless request_timeout is configured: a reply may stream for a long time.
func NewClient(cfg *config.Config) *Client {
	return NewClientWithServer(cfg.APIURL, cfg.RequestTimeout.Duration)
}

func NewClientWithServer(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		newID: func() string { return uuid.New().String() },
	}
}

func (c *Client) setHeaders(req *http.Request, requestID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Request-ID", requestID)
}

// --- Chat (Streaming) ---

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string            `json:"session_id"`
	Query     string            `json:"query"`
	UserInfo  identity.Identity `json:"user_info"`
}

// NewChatRequest uses the organization as the session ID, so the service
// keeps one history per organization.
func NewChatRequest(id identity.Identity, query string) ChatRequest {
	return ChatRequest{
		SessionID: id.Organization,
		Query:     query,
		UserInfo:  id,
	}
}

// OpenChat posts the question and returns the streamed answer body.
// The caller must close it.
func (c *Client) OpenChat(ctx context.Context, reqBody ChatRequest) (io.ReadCloser, error) {
	requestID := c.newID()
	log := observability.WithFields("request_id", requestID, "organization", reqBody.SessionID)

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("chat request failed", "error", err)
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		serr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
		log.Error("chat request rejected", "status", resp.StatusCode, "error", serr)
		return nil, serr
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		log.Error("chat response has no body", "status", resp.StatusCode)
		return nil, ErrNoBody
	}

	log.Info("chat stream opened", "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())
	return resp.Body, nil
}

// StreamCallback is called with each decoded piece of the answer.
type StreamCallback func(text string)

// StreamChat runs one whole exchange: it opens the stream, decodes it chunk
// by chunk, and returns the complete answer. Partial text is discarded on
// error.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, cb StreamCallback) (string, error) {
	body, err := c.OpenChat(ctx, req)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var (
		dec chat.Decoder
		acc strings.Builder
	)
	emit := func(s string) {
		if s == "" {
			return
		}
		acc.WriteString(s)
		if cb != nil {
			cb(s)
		}
	}

	err = ReadChunks(body, func(p []byte) {
		emit(dec.Decode(p))
	})
	if err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	emit(dec.Flush())
	return acc.String(), nil
}

// chunkSize bounds one read from the body; chunk boundaries carry no meaning.
const chunkSize = 4096

// ReadChunks calls fn with each chunk read from r until EOF.
func ReadChunks(r io.Reader, fn func([]byte)) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
