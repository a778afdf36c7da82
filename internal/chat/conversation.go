package chat

import (
	"strings"
	"time"
)

// Conversation is the ordered message history plus the bot reply that is
// currently being streamed. The reply lives outside the history until
// FinishReply or FailReply merges it, so chunk updates never rebuild the
// history slice.
type Conversation struct {
	history []Message
	current *Message
	acc     strings.Builder
	dec     Decoder
	now     func() time.Time
}

// NewConversation returns a conversation seeded with the greeting.
// A nil clock defaults to time.Now.
func NewConversation(now func() time.Time) *Conversation {
	if now == nil {
		now = time.Now
	}
	c := &Conversation{now: now}
	c.history = append(c.history, Message{Content: Greeting, Role: RoleBot, Timestamp: now()})
	return c
}

// AddUser appends a user message to the history.
func (c *Conversation) AddUser(text string) Message {
	m := Message{Content: text, Role: RoleUser, Timestamp: c.now()}
	c.history = append(c.history, m)
	return m
}

// BeginReply opens an empty pending bot reply. It reports false if a reply
// is already open.
func (c *Conversation) BeginReply() bool {
	if c.current != nil {
		return false
	}
	c.acc.Reset()
	c.dec = Decoder{}
	c.current = &Message{Role: RoleBot, Timestamp: c.now(), Pending: true}
	return true
}

// AppendChunk decodes one chunk of the reply body and replaces the current
// reply with the accumulated text. The pending flag clears on the first chunk.
func (c *Conversation) AppendChunk(p []byte) {
	if c.current == nil {
		return
	}
	c.acc.WriteString(c.dec.Decode(p))
	c.current = &Message{
		Content:   c.acc.String(),
		Role:      RoleBot,
		Timestamp: c.now(),
	}
}

// FinishReply merges the current reply into the history as permanent content.
func (c *Conversation) FinishReply() (Message, bool) {
	if c.current == nil {
		return Message{}, false
	}
	if tail := c.dec.Flush(); tail != "" {
		c.acc.WriteString(tail)
	}
	m := *c.current
	m.Content = c.acc.String()
	m.Pending = false
	c.history = append(c.history, m)
	c.current = nil
	c.acc.Reset()
	return m, true
}

// FailReply discards whatever was streamed and records ErrorText in its
// place. When no reply was open (the request itself failed) the error
// message is appended instead.
func (c *Conversation) FailReply() Message {
	m := Message{Content: ErrorText, Role: RoleBot, Timestamp: c.now()}
	c.history = append(c.history, m)
	c.current = nil
	c.acc.Reset()
	c.dec = Decoder{}
	return m
}

// Current returns the reply being streamed, if any.
func (c *Conversation) Current() (Message, bool) {
	if c.current == nil {
		return Message{}, false
	}
	return *c.current, true
}

// Streaming reports whether a reply is open.
func (c *Conversation) Streaming() bool {
	return c.current != nil
}

// Messages returns a copy of the history with the open reply, if any, last.
func (c *Conversation) Messages() []Message {
	out := make([]Message, 0, len(c.history)+1)
	out = append(out, c.history...)
	if c.current != nil {
		out = append(out, *c.current)
	}
	return out
}

// History returns only the merged messages.
func (c *Conversation) History() []Message {
	return append([]Message(nil), c.history...)
}

// Len is len(Messages()).
func (c *Conversation) Len() int {
	if c.current != nil {
		return len(c.history) + 1
	}
	return len(c.history)
}
