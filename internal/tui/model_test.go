package tui

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"resumechat/internal/api"
	"resumechat/internal/chat"
	"resumechat/internal/config"
	"resumechat/internal/identity"
	"resumechat/internal/kvstore"

	tea "github.com/charmbracelet/bubbletea"
)

// chunkReader returns one chunk per Read, then err (io.EOF if nil).
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

// mockChat implements api.ChatAPI for testing.
type mockChat struct {
	chunks  [][]byte
	readErr error
	err     error // if set, OpenChat fails

	requests []api.ChatRequest
}

func (m *mockChat) OpenChat(_ context.Context, req api.ChatRequest) (io.ReadCloser, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(&chunkReader{chunks: m.chunks, err: m.readErr}), nil
}

// Verify mockChat satisfies the interface at compile time.
var _ api.ChatAPI = (*mockChat)(nil)

func newTestModel(t *testing.T, org string, client api.ChatAPI) model {
	t.Helper()
	store, err := kvstore.OpenFile(filepath.Join(t.TempDir(), "storage.json"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gate := identity.NewGate(store)
	if org != "" {
		if _, err := gate.Submit(org); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	cfg := &config.Config{APIURL: "http://localhost:8000", MarkdownStyle: "notty"}
	m := initialModel("test", cfg, client, gate)
	m.ready = true
	m.width = 80
	m.height = 24
	return m
}

// runExchange drives one exchange the way the Bubble Tea runtime would,
// without executing the spinner or print commands.
func runExchange(t *testing.T, m model, text string) (model, []chat.Message) {
	t.Helper()
	result, _ := m.send(text)
	m = result.(model)
	if !m.loading {
		t.Fatal("send did not start an exchange")
	}

	id, _ := m.gate.Current()
	msg := openChat(m.client, api.NewChatRequest(id, text), m.done)()

	var snapshots []chat.Message
	for i := 0; i < 100 && m.loading; i++ {
		result, _ = m.Update(msg)
		m = result.(model)
		if cur, ok := m.conv.Current(); ok {
			snapshots = append(snapshots, cur)
		}
		if !m.loading {
			break
		}
		msg = waitForStream(m.streamCh)()
	}
	if m.loading {
		t.Fatal("exchange never finished")
	}
	return m, snapshots
}

func lastMessage(m model) chat.Message {
	msgs := m.conv.Messages()
	return msgs[len(msgs)-1]
}

func TestExchangeStreamsSplitCharacter(t *testing.T) {
	full := []byte("안녕하세요")
	client := &mockChat{chunks: [][]byte{full[:2], full[2:]}}
	m := newTestModel(t, "Acme", client)

	m, snapshots := runExchange(t, m, "소개해 주세요")

	if len(client.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(client.requests))
	}
	req := client.requests[0]
	if req.SessionID != "Acme" || req.Query != "소개해 주세요" || req.UserInfo.Organization != "Acme" {
		t.Errorf("request = %+v", req)
	}

	if len(snapshots) == 0 || !snapshots[0].Pending {
		t.Fatalf("first snapshot should be the pending placeholder, got %+v", snapshots)
	}
	for _, s := range snapshots {
		if strings.ContainsRune(s.Content, '\uFFFD') {
			t.Errorf("replacement character leaked into %q", s.Content)
		}
	}

	if got := m.conv.Len(); got != 3 {
		t.Fatalf("messages = %d, want 3 (greeting, user, reply)", got)
	}
	last := lastMessage(m)
	if last.Content != "안녕하세요" || last.Role != chat.RoleBot || last.Pending {
		t.Errorf("reply = %+v", last)
	}
	if m.loading {
		t.Error("loading should be cleared")
	}
	if m.printed != 3 {
		t.Errorf("printed = %d, want 3", m.printed)
	}
}

func TestExchangeOpenFailure(t *testing.T) {
	client := &mockChat{err: errors.New("connection refused")}
	m := newTestModel(t, "Acme", client)

	m, _ = runExchange(t, m, "질문")

	if got := m.conv.Len(); got != 3 {
		t.Fatalf("messages = %d, want 3", got)
	}
	if last := lastMessage(m); last.Content != chat.ErrorText {
		t.Errorf("last = %q, want error text", last.Content)
	}
	if m.conv.Streaming() {
		t.Error("no reply should remain open")
	}
}

func TestExchangeReadFailureReplacesPartialReply(t *testing.T) {
	client := &mockChat{
		chunks:  [][]byte{[]byte("부분 응답")},
		readErr: errors.New("connection reset"),
	}
	m := newTestModel(t, "Acme", client)

	m, _ = runExchange(t, m, "질문")

	if got := m.conv.Len(); got != 3 {
		t.Fatalf("messages = %d, want 3", got)
	}
	for _, msg := range m.conv.Messages() {
		if strings.Contains(msg.Content, "부분 응답") {
			t.Errorf("partial reply should be replaced, found %q", msg.Content)
		}
	}
	if last := lastMessage(m); last.Content != chat.ErrorText {
		t.Errorf("last = %q, want error text", last.Content)
	}
}

func TestExchangeWithoutClient(t *testing.T) {
	m := newTestModel(t, "Acme", nil)

	msg := openChat(nil, api.ChatRequest{}, nil)()
	errMsg, ok := msg.(streamErrMsg)
	if !ok || !errors.Is(errMsg.err, errNotConfigured) {
		t.Fatalf("msg = %#v, want errNotConfigured", msg)
	}

	m, _ = runExchange(t, m, "질문")
	if last := lastMessage(m); last.Content != chat.ErrorText {
		t.Errorf("last = %q, want error text", last.Content)
	}
}

func TestSendIgnored(t *testing.T) {
	t.Run("blank text", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		result, cmd := m.send("   \n ")
		rm := result.(model)
		if rm.loading || cmd != nil || rm.conv.Len() != 1 {
			t.Errorf("blank send changed state: loading=%v len=%d", rm.loading, rm.conv.Len())
		}
	})

	t.Run("while loading", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		m.loading = true
		result, cmd := m.send("질문")
		rm := result.(model)
		if cmd != nil || rm.conv.Len() != 1 {
			t.Errorf("send while loading changed state: len=%d", rm.conv.Len())
		}
	})

	t.Run("without identity", func(t *testing.T) {
		client := &mockChat{}
		m := newTestModel(t, "", client)
		result, cmd := m.send("질문")
		rm := result.(model)
		if rm.loading || cmd != nil || rm.conv.Len() != 1 {
			t.Errorf("send without identity changed state")
		}
	})
}

func TestQuickReplies(t *testing.T) {
	t.Run("function key sends the canned question", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		result, _ := m.Update(tea.KeyMsg{Type: tea.KeyF1})
		rm := result.(model)
		if !rm.loading {
			t.Fatal("F1 should start an exchange")
		}
		if got := lastMessage(rm); got.Role != chat.RoleUser || got.Content != chat.QuickReplies[0].Query {
			t.Errorf("last = %+v", got)
		}
	})

	t.Run("slash command", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		result, _ := m.dispatchInput("/quick 4")
		rm := result.(model)
		if got := lastMessage(rm); got.Content != chat.QuickReplies[3].Query {
			t.Errorf("last = %q", got.Content)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		result, cmd := m.quickReply(9)
		rm := result.(model)
		if rm.loading || cmd == nil {
			t.Error("expected an error print and no exchange")
		}
	})

	t.Run("ignored without identity", func(t *testing.T) {
		m := newTestModel(t, "", &mockChat{})
		result, _ := m.quickReply(1)
		rm := result.(model)
		if rm.loading || rm.conv.Len() != 1 {
			t.Error("quick reply without identity should be a no-op")
		}
	})

	t.Run("ignored while loading", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		m.loading = true
		result, _ := m.Update(tea.KeyMsg{Type: tea.KeyF2})
		rm := result.(model)
		if rm.conv.Len() != 1 {
			t.Error("F2 while loading should be ignored")
		}
	})
}

func TestEnterWhileLoadingIsIgnored(t *testing.T) {
	m := newTestModel(t, "Acme", &mockChat{})
	m.composer.SetValue("질문")
	m.loading = true

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := result.(model)
	if rm.conv.Len() != 1 {
		t.Errorf("messages = %d, want 1", rm.conv.Len())
	}
	if rm.composer.Value() != "질문" {
		t.Errorf("composer = %q, should be untouched", rm.composer.Value())
	}
}

func TestEnterSendsComposer(t *testing.T) {
	m := newTestModel(t, "Acme", &mockChat{})
	m.composer.SetValue("경력이 궁금해요")

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := result.(model)
	if !rm.loading {
		t.Fatal("Enter should start an exchange")
	}
	if rm.composer.Value() != "" {
		t.Errorf("composer = %q, want cleared", rm.composer.Value())
	}
	if got := lastMessage(rm); got.Content != "경력이 궁금해요" {
		t.Errorf("last = %q", got.Content)
	}
}

func TestGate(t *testing.T) {
	t.Run("blank organization shows prompt", func(t *testing.T) {
		m := newTestModel(t, "", &mockChat{})
		result, _ := m.submitGate("   ")
		rm := result.(model)
		if rm.gate.Present() {
			t.Error("blank organization should not be accepted")
		}
		if rm.gateErr != identity.PromptText {
			t.Errorf("gateErr = %q, want %q", rm.gateErr, identity.PromptText)
		}
		if !strings.Contains(rm.View(), identity.PromptText) {
			t.Error("view should show the prompt")
		}
	})

	t.Run("valid organization opens chat", func(t *testing.T) {
		m := newTestModel(t, "", &mockChat{})
		m.orgInput.SetValue("  Acme  ")
		result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		rm := result.(model)
		id, ok := rm.gate.Current()
		if !ok || id.Organization != "Acme" {
			t.Fatalf("identity = %+v, %v", id, ok)
		}
		if rm.gateErr != "" {
			t.Errorf("gateErr = %q, want empty", rm.gateErr)
		}
		if !rm.composer.Focused() {
			t.Error("composer should be focused")
		}
	})

	t.Run("keys go to the form", func(t *testing.T) {
		m := newTestModel(t, "", &mockChat{})
		result, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Ac")})
		rm := result.(model)
		if rm.orgInput.Value() != "Ac" {
			t.Errorf("orgInput = %q, want %q", rm.orgInput.Value(), "Ac")
		}
		if rm.composer.Value() != "" {
			t.Error("composer should not receive keys while the gate is shown")
		}
	})
}

func TestLogout(t *testing.T) {
	m := newTestModel(t, "Acme", &mockChat{})
	result, cmd := m.dispatchCommand("/logout")
	rm := result.(model)
	if rm.gate.Present() {
		t.Error("identity should be cleared")
	}
	if cmd == nil {
		t.Error("expected a notice cmd")
	}
	if !strings.Contains(rm.View(), "사용자 정보 입력") {
		t.Error("view should show the gate after logout")
	}
}

func TestDispatchCommand(t *testing.T) {
	tests := []struct {
		input   string
		wantCmd bool
	}{
		{"/help", true},
		{"/h", true},
		{"/whoami", true},
		{"/quick", true},
		{"/quick x", true},
		{"/quit", true},
		{"/unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := newTestModel(t, "Acme", &mockChat{})
			result, cmd := m.dispatchCommand(tt.input)
			rm := result.(model)
			if (cmd != nil) != tt.wantCmd {
				t.Errorf("cmd = %v, wantCmd %v", cmd != nil, tt.wantCmd)
			}
			if rm.loading {
				t.Error("command should not start an exchange")
			}
		})
	}
}

func TestDispatchInput(t *testing.T) {
	t.Run("question mark shows help", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		result, cmd := m.dispatchInput("?")
		rm := result.(model)
		if rm.loading || cmd == nil {
			t.Error("? should print help without sending")
		}
	})

	t.Run("plain text sends", func(t *testing.T) {
		m := newTestModel(t, "Acme", &mockChat{})
		result, _ := m.dispatchInput("학력이 궁금합니다")
		rm := result.(model)
		if !rm.loading {
			t.Error("plain text should start an exchange")
		}
	})
}

func TestTabCompletesCommand(t *testing.T) {
	m := newTestModel(t, "Acme", &mockChat{})
	m.composer.SetValue("/log")
	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	rm := result.(model)
	if got := rm.composer.Value(); got != "/logout " {
		t.Errorf("composer = %q, want %q", got, "/logout ")
	}
}

func TestViewWhileStreaming(t *testing.T) {
	m := newTestModel(t, "Acme", &mockChat{})
	m.loading = true
	m.conv.AddUser("질문")
	m.conv.BeginReply()

	v := m.View()
	if !strings.Contains(v, "답변 생성 중") {
		t.Errorf("pending reply not shown:\n%s", v)
	}

	m.conv.AppendChunk([]byte("스트리밍"))
	v = m.View()
	if !strings.Contains(v, "스트리밍") {
		t.Errorf("streamed text not shown:\n%s", v)
	}
}
