package api

import (
	"context"
	"io"
)

// ChatAPI defines the interface for the chat service client.
// *Client satisfies this interface. TUI and tests can use mock implementations.
type ChatAPI interface {
	OpenChat(ctx context.Context, req ChatRequest) (io.ReadCloser, error)
}
