package tui

import (
	"fmt"
	"strings"

	"resumechat/internal/chat"
	"resumechat/internal/display"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ─── Welcome Screen ─────────────────────────────────────────────────────────

func renderWelcome(version, server string) string {
	titleLine := logoTitleStyle.Render("이력서 챗봇") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if server == "" {
		infoLine = welcomeHintStyle.Render("Set api_url in ~/.resumechat/config.toml to get started")
	} else {
		serverDisplay := server
		if len([]rune(serverDisplay)) > 48 {
			serverDisplay = string([]rune(serverDisplay)[:45]) + "..."
		}
		infoLine = dimStyle.Render(serverDisplay)
	}
	return fmt.Sprintf("\n%s\n%s\n", titleLine, infoLine)
}

// ─── Markdown ───────────────────────────────────────────────────────────────

// markdown renders finished bot replies. A nil renderer (or a render
// error) falls back to the raw text.
type markdown struct {
	r *glamour.TermRenderer
}

func newMarkdown(style string, width int) markdown {
	if width <= 0 {
		width = 80
	}
	wrap := max(width-4, 20)

	styleOpt := glamour.WithStandardStyle(style)
	if style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err != nil {
		return markdown{}
	}
	return markdown{r: r}
}

func (md markdown) render(text string) string {
	if md.r == nil {
		return text
	}
	out, err := md.r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// ─── Messages ───────────────────────────────────────────────────────────────

func messageHeader(m chat.Message) string {
	label := botLabelStyle.Render("● 챗봇")
	if m.Role == chat.RoleUser {
		label = userLabelStyle.Render("❯ 나")
	}
	if ts := display.Clock(m.Timestamp); ts != "" {
		label += " " + timestampStyle.Render(ts)
	}
	return label
}

// renderMessage renders a finished message for scrollback.
func renderMessage(m chat.Message, md markdown, width int) string {
	var body string
	if m.Role == chat.RoleBot && m.Content != chat.ErrorText {
		body = md.render(m.Content)
	} else {
		body = indent(wrap(m.Content, width-2), "  ")
	}
	if m.Content == chat.ErrorText {
		body = errorMsgStyle.Render(body)
	}
	return messageHeader(m) + "\n" + body + "\n"
}

// renderLive renders the reply still being streamed. It stays raw text:
// markdown is applied once the reply is complete.
func renderLive(m chat.Message, spinnerView string, width int) string {
	header := messageHeader(m) + " " + spinnerView
	if m.Pending {
		return header + " " + statusStyle.Render("답변 생성 중...")
	}
	return header + "\n" + indent(wrap(m.Content, width-2), "  ")
}

// ─── Quick replies ──────────────────────────────────────────────────────────

func renderQuickReplies(enabled bool) string {
	var items []string
	for i, qr := range chat.QuickReplies {
		key := fmt.Sprintf("F%d", i+1)
		if enabled {
			items = append(items, quickKeyStyle.Render(key)+" "+quickLabelStyle.Render(qr.Label))
		} else {
			items = append(items, quickDisabledStyle.Render(key+" "+qr.Label))
		}
	}
	return "  " + strings.Join(items, dimStyle.Render("  ·  "))
}

// ─── Gate ───────────────────────────────────────────────────────────────────

func renderGate(inputView, errText string) string {
	var b strings.Builder
	b.WriteString(gateTitleStyle.Render("사용자 정보 입력"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("소속"))
	b.WriteString("\n")
	b.WriteString(inputView)
	if errText != "" {
		b.WriteString("\n")
		b.WriteString(errorMsgStyle.Render("✗ " + errText))
	}
	b.WriteString("\n\n")
	b.WriteString(hintBarStyle.Render("Enter 시작하기   Ctrl+C 종료"))
	return gateBoxStyle.Render(b.String())
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func wrap(s string, width int) string {
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
