package tui

import (
	"fmt"
	"strconv"
	"strings"

	"resumechat/internal/chat"
	"resumechat/internal/observability"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/help", "Show all commands"},
	{"/logout", "Forget your organization"},
	{"/quick", "Ask a quick question (1-5)"},
	{"/quit", "Exit"},
	{"/whoami", "Show your organization"},
}

// matchCommands returns all slash commands matching a prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(prefix)
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Input dispatcher ───────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "?" {
		m.composer.Reset()
		return m.cmdHelp()
	}
	if strings.HasPrefix(trimmed, "/") {
		m.composer.Reset()
		return m.dispatchCommand(trimmed)
	}
	return m.send(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/logout":
		return m.cmdLogout()
	case "/whoami":
		return m.cmdWhoami()
	case "/quick":
		return m.cmdQuick(args)
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s (type /help)", cmd)))
	}
}

// ─── /help ──────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	pad := func(s string, w int) string {
		for len(s) < w {
			s += " "
		}
		return s
	}

	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render("  Shortcuts:")),
		tea.Println(""),
		tea.Println("  " + pad(hintKeyStyle.Render("Enter"), 30) + dimStyle.Render("Send the message")),
		tea.Println("  " + pad(hintKeyStyle.Render("Alt+Enter"), 30) + dimStyle.Render("Insert a newline")),
		tea.Println("  " + pad(hintKeyStyle.Render("F1-F5"), 30) + dimStyle.Render("Ask a quick question")),
		tea.Println("  " + pad(hintKeyStyle.Render("/quick <n>"), 30) + dimStyle.Render("Same as F<n>")),
		tea.Println("  " + pad(hintKeyStyle.Render("/whoami"), 30) + dimStyle.Render("Show your organization")),
		tea.Println("  " + pad(hintKeyStyle.Render("/logout"), 30) + dimStyle.Render("Forget your organization")),
		tea.Println("  " + pad(hintKeyStyle.Render("/quit"), 30) + dimStyle.Render("Exit")),
		tea.Println(""),
	}
	for i, qr := range chat.QuickReplies {
		lines = append(lines, tea.Println(dimStyle.Render(fmt.Sprintf("  F%d  %-12s %s", i+1, qr.Label, qr.Query))))
	}
	lines = append(lines, tea.Println(""))
	return m, tea.Sequence(lines...)
}

// ─── /logout ────────────────────────────────────────────────────────────────

func (m model) cmdLogout() (tea.Model, tea.Cmd) {
	if err := m.gate.Logout(); err != nil {
		observability.Logger().Error("logout failed", "error", err)
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", err)))
	}
	m.gateErr = ""
	m.orgInput.Reset()
	m.composer.Blur()
	focus := m.orgInput.Focus()
	return m, tea.Batch(
		tea.Println(warnMsgStyle.Render("  ! 로그아웃되었습니다.")),
		focus,
	)
}

// ─── /whoami ────────────────────────────────────────────────────────────────

func (m model) cmdWhoami() (tea.Model, tea.Cmd) {
	id, ok := m.gate.Current()
	if !ok {
		return m, nil
	}
	return m, tea.Println(dimStyle.Render("  소속: ") + orgStyle.Render(id.Organization))
}

// ─── /quick ─────────────────────────────────────────────────────────────────

func (m model) cmdQuick(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Usage: /quick <1-%d>", len(chat.QuickReplies))))
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Not a number: %s", args[0])))
	}
	return m.quickReply(n)
}

// quickReply sends the n-th (1-based) canned question.
func (m model) quickReply(n int) (tea.Model, tea.Cmd) {
	qr, ok := chat.LookupQuickReply(n)
	if !ok {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ No quick question %d", n)))
	}
	return m.send(qr.Query)
}
