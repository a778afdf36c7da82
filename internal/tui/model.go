package tui

import (
	"errors"
	"strings"

	"resumechat/internal/api"
	"resumechat/internal/chat"
	"resumechat/internal/config"
	"resumechat/internal/identity"
	"resumechat/internal/observability"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	composer textarea.Model
	orgInput textinput.Model
	spinner  spinner.Model

	// App state
	cfg     *config.Config
	client  api.ChatAPI
	gate    *identity.Gate
	conv    *chat.Conversation
	md      markdown
	version string

	// loading is true from send until the exchange ends, success or not.
	loading  bool
	streamCh <-chan tea.Msg
	gateErr  string

	// printed counts history messages already written to scrollback.
	printed int

	// done is closed when the program exits, stopping any stream reader.
	done chan struct{}

	ready bool
}

func initialModel(version string, cfg *config.Config, client api.ChatAPI, gate *identity.Gate) model {
	ta := textarea.New()
	ta.Placeholder = "메시지를 입력하세요..."
	ta.ShowLineNumbers = false
	ta.Prompt = "❯ "
	ta.CharLimit = 4096
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))

	ti := textinput.New()
	ti.Placeholder = "소속을 입력하세요"
	ti.CharLimit = 200
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorAccent)

	if gate.Present() {
		ta.Focus()
	} else {
		ti.Focus()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	style := "dark"
	if cfg != nil && cfg.MarkdownStyle != "" {
		style = cfg.MarkdownStyle
	}

	return model{
		composer: ta,
		orgInput: ti,
		spinner:  sp,
		cfg:      cfg,
		client:   client,
		gate:     gate,
		conv:     chat.NewConversation(nil),
		md:       newMarkdown(style, 80),
		version:  version,
		done:     make(chan struct{}),
	}
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

// inputDisabled is the single derived check behind the composer, the send
// key and the quick replies.
func (m model) inputDisabled() bool {
	return m.loading || !m.gate.Present()
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.composer.SetWidth(max(m.width-4, 20))
		m.orgInput.Width = min(max(m.width-12, 20), 40)
		m.md = newMarkdown(m.markdownStyle(), m.width)

		if !m.ready {
			m.ready = true
			cmds = append(cmds, tea.Println(renderWelcome(m.version, serverStr(m.cfg))))
			cmds = append(cmds, m.flushHistory()...)
			return m, tea.Sequence(cmds...)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		if !m.gate.Present() {
			return m.updateGate(msg)
		}

		switch msg.String() {
		case "f1", "f2", "f3", "f4", "f5":
			if m.inputDisabled() {
				return m, nil
			}
			return m.quickReply(int(msg.String()[1] - '0'))
		}

		if m.inputDisabled() {
			// Composer is disabled while a reply streams.
			return m, nil
		}

		switch msg.Type {
		case tea.KeyEnter:
			if msg.Alt {
				break
			}
			return m.dispatchInput(m.composer.Value())

		case tea.KeyTab:
			val := m.composer.Value()
			if strings.HasPrefix(val, "/") && !strings.Contains(val, " ") {
				if matches := matchCommands(val); len(matches) > 0 {
					m.composer.SetValue(matches[0].name + " ")
					return m, nil
				}
			}
		}

	// ── Stream messages ───────────────────────────────────────────────
	case streamOpenedMsg:
		m.conv.BeginReply()
		m.streamCh = msg.ch
		return m, waitForStream(m.streamCh)

	case streamChunkMsg:
		m.conv.AppendChunk(msg.data)
		if m.streamCh != nil {
			return m, waitForStream(m.streamCh)
		}
		return m, nil

	case streamDoneMsg:
		m.conv.FinishReply()
		return m.endExchange()

	case streamErrMsg:
		m.logExchangeError(msg.err)
		m.conv.FailReply()
		return m.endExchange()
	}

	// Update sub-components
	var cmd tea.Cmd

	if !m.gate.Present() {
		m.orgInput, cmd = m.orgInput.Update(msg)
		cmds = append(cmds, cmd)
	} else if !m.inputDisabled() {
		m.composer, cmd = m.composer.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// updateGate handles keys while the organization form is shown.
func (m model) updateGate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		return m.submitGate(m.orgInput.Value())
	}
	var cmd tea.Cmd
	m.orgInput, cmd = m.orgInput.Update(msg)
	return m, cmd
}

// submitGate validates the organization. Blank input leaves every piece of
// state untouched apart from the inline error.
func (m model) submitGate(raw string) (tea.Model, tea.Cmd) {
	id, err := m.gate.Submit(raw)
	if err != nil {
		if errors.Is(err, identity.ErrEmptyOrganization) {
			m.gateErr = identity.PromptText
		} else {
			observability.Logger().Error("saving identity failed", "error", err)
			m.gateErr = err.Error()
		}
		return m, nil
	}

	m.gateErr = ""
	m.orgInput.Reset()
	m.orgInput.Blur()
	focus := m.composer.Focus()
	return m, tea.Batch(
		tea.Println(successMsgStyle.Render("  ✓ ")+dimStyle.Render("소속: ")+orgStyle.Render(id.Organization)),
		focus,
	)
}

// send starts one exchange. Blank text, a missing identity, or a reply
// already in flight make it a no-op.
func (m model) send(text string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(text) == "" || m.loading {
		return m, nil
	}
	id, ok := m.gate.Current()
	if !ok {
		return m, nil
	}

	m.conv.AddUser(text)
	m.composer.Reset()
	m.composer.Blur()
	m.loading = true

	prints := m.flushHistory()
	return m, tea.Batch(
		tea.Sequence(prints...),
		openChat(m.client, api.NewChatRequest(id, text), m.done),
		m.spinner.Tick,
	)
}

// endExchange runs after every exchange, however it ended.
func (m model) endExchange() (tea.Model, tea.Cmd) {
	m.loading = false
	m.streamCh = nil

	cmds := m.flushHistory()
	if m.gate.Present() {
		cmds = append(cmds, m.composer.Focus())
	}
	return m, tea.Sequence(cmds...)
}

func (m model) logExchangeError(err error) {
	log := observability.Logger()
	if id, ok := m.gate.Current(); ok {
		log = log.With("organization", id.Organization)
	}
	log.Error("chat exchange failed", "error", err)
}

// flushHistory prints history messages not yet in scrollback.
func (m *model) flushHistory() []tea.Cmd {
	if !m.ready {
		return nil
	}
	history := m.conv.History()
	var cmds []tea.Cmd
	for _, msg := range history[m.printed:] {
		cmds = append(cmds, tea.Println(renderMessage(msg, m.md, m.contentWidth())))
	}
	m.printed = len(history)
	return cmds
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: finished messages are printed above via tea.Println. View()
// only shows the reply being streamed, the gate or composer, and hints.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	if cur, ok := m.conv.Current(); ok {
		s.WriteString(renderLive(cur, m.spinner.View(), m.contentWidth()))
		s.WriteString("\n\n")
	} else if m.loading {
		s.WriteString(m.spinner.View() + " " + statusStyle.Render("연결 중..."))
		s.WriteString("\n\n")
	}

	if !m.gate.Present() {
		s.WriteString(renderGate(m.orgInput.View(), m.gateErr))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(renderQuickReplies(!m.inputDisabled()))
	s.WriteString("\n")
	if m.inputDisabled() {
		s.WriteString(dimStyle.Render("  응답을 기다리는 중입니다..."))
	} else {
		s.WriteString(m.composer.View())
	}
	s.WriteString("\n")

	// Separator
	sepWidth := min(m.width, 80)
	if sepWidth < 20 {
		sepWidth = 20
	}
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	s.WriteString(m.renderHints())
	return s.String()
}

// ─── Hint bar ───────────────────────────────────────────────────────────────

func (m model) renderHints() string {
	if m.loading {
		return hintBarStyle.Render("  Ctrl+C 종료")
	}

	val := m.composer.Value()
	if strings.HasPrefix(val, "/") && !strings.Contains(val, " ") {
		if matches := matchCommands(val); len(matches) > 0 {
			return renderCommandMenu(matches)
		}
	}

	org := ""
	if id, ok := m.gate.Current(); ok {
		org = orgStyle.Render(id.Organization) + hintBarStyle.Render("  ·  ")
	}
	return "  " + org + hintBarStyle.Render("Enter 전송 · Alt+Enter 줄바꿈 · /logout · ? 도움말")
}

// renderCommandMenu renders a vertical list of matching commands.
func renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		if len(c.name) > maxLen {
			maxLen = len(c.name)
		}
	}

	var lines []string
	for _, c := range matches {
		padded := c.name + strings.Repeat(" ", maxLen-len(c.name))
		lines = append(lines, "  "+cmdNameStyle.Render(padded)+"  "+cmdDescStyle.Render(c.desc))
	}
	lines = append(lines, hintBarStyle.Render("  Tab complete"))
	return strings.Join(lines, "\n")
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (m model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return min(m.width, 100)
}

func (m model) markdownStyle() string {
	if m.cfg == nil || m.cfg.MarkdownStyle == "" {
		return "dark"
	}
	return m.cfg.MarkdownStyle
}

func serverStr(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.APIURL
}
