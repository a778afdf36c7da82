package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"resumechat/internal/api"

	tea "github.com/charmbracelet/bubbletea"
)

var errNotConfigured = errors.New("chat service URL is not configured")

// ─── Messages sent from stream goroutine to Bubble Tea ──────────────────────

// streamOpenedMsg means the service accepted the question; ch carries
// the body as it arrives.
type streamOpenedMsg struct {
	ch <-chan tea.Msg
}

type streamChunkMsg struct {
	data []byte
}

type streamDoneMsg struct{}

type streamErrMsg struct {
	err error
}

// ─── Stream command ─────────────────────────────────────────────────────────
//
// openChat posts the question off the update loop. On success it starts a
// reader goroutine that forwards body chunks through a channel; the model
// pulls one message at a time with waitForStream until the stream ends.

func openChat(client api.ChatAPI, req api.ChatRequest, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return streamErrMsg{err: errNotConfigured}
		}
		body, err := client.OpenChat(context.Background(), req)
		if err != nil {
			return streamErrMsg{err: err}
		}
		return streamOpenedMsg{ch: readStream(body, done)}
	}
}

// readStream emits one streamChunkMsg per read, then exactly one
// streamDoneMsg or streamErrMsg, then closes the channel. Closing done
// stops the reader early: the body is closed to unblock a pending read and
// nothing more is sent.
func readStream(body io.ReadCloser, done <-chan struct{}) <-chan tea.Msg {
	ch := make(chan tea.Msg, 64)
	finished := make(chan struct{})

	go func() {
		select {
		case <-done:
			body.Close()
		case <-finished:
		}
	}()

	go func() {
		defer close(ch)
		defer close(finished)
		defer body.Close()

		stopped := false
		send := func(msg tea.Msg) {
			if stopped {
				return
			}
			select {
			case ch <- msg:
			case <-done:
				stopped = true
			}
		}

		err := api.ReadChunks(body, func(p []byte) {
			// ReadChunks reuses its buffer.
			send(streamChunkMsg{data: append([]byte(nil), p...)})
		})
		if err != nil {
			send(streamErrMsg{err: fmt.Errorf("reading stream: %w", err)})
			return
		}
		send(streamDoneMsg{})
	}()

	return ch
}

// waitForStream reads the next message from the channel.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		return msg
	}
}
