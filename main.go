package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"resumechat/internal/api"
	"resumechat/internal/chat"
	"resumechat/internal/config"
	"resumechat/internal/display"
	"resumechat/internal/identity"
	"resumechat/internal/kvstore"
	"resumechat/internal/observability"
	"resumechat/internal/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	activeProfile string
	debugLogging  bool
)

func main() {
	args := os.Args[1:]

	// Parse global flags first (--profile, --debug)
	args = parseGlobalFlags(args)

	// No args → launch interactive mode (default)
	if len(args) == 0 || args[0] == "-i" || args[0] == "--interactive" || args[0] == "interactive" {
		if err := runInteractive(); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	var err error

	switch args[0] {
	case "ask":
		err = cmdAsk(args[1:])
	case "login":
		err = cmdLogin(args[1:])
	case "logout":
		err = cmdLogout()
	case "whoami":
		err = cmdWhoami()
	case "set":
		err = cmdSet(args[1:])
	case "config":
		err = cmdConfig()
	case "profiles":
		err = cmdProfiles()
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Println(versionString())
	default:
		display.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

// ─── wiring ──────────────────────────────────────────────────────────────────

// session holds what every command that touches the identity needs.
type session struct {
	cfg   *config.Config
	store kvstore.Store
	gate  *identity.Gate

	closeLog func() error
}

func openSession() (*session, error) {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return nil, err
	}

	closeLog, err := observability.Init(cfg.LogFile, debugLogging)
	if err != nil {
		return nil, err
	}

	store, err := kvstore.Open(cfg.Storage, cfg.StoragePath)
	if err != nil {
		closeLog()
		return nil, err
	}

	gate := identity.NewGate(store)
	if err := gate.Load(); err != nil {
		store.Close()
		closeLog()
		return nil, err
	}

	return &session{cfg: cfg, store: store, gate: gate, closeLog: closeLog}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		observability.Logger().Warn("closing storage", "error", err)
	}
	_ = s.closeLog()
}

// client returns nil when the service URL is unusable; the chat view then
// fails each exchange with the standard error message.
func (s *session) client() api.ChatAPI {
	if err := s.cfg.Validate(); err != nil {
		observability.Logger().Warn("chat service not configured", "error", err)
		return nil
	}
	return api.NewClient(s.cfg)
}

// ─── interactive ─────────────────────────────────────────────────────────────

func runInteractive() error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	return tui.Run(version, s.cfg, s.gate, s.client())
}

// ─── ask ─────────────────────────────────────────────────────────────────────

func cmdAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		fmt.Println(`Usage: resumechat ask "<question>"`)
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  resumechat ask "보유하고 계신 기술 스택을 알려주세요."`)
		fmt.Println(`  resumechat --profile staging ask "경력 사항을 알려주세요."`)
		return nil
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.cfg.Validate(); err != nil {
		return err
	}
	id, ok := s.gate.Current()
	if !ok {
		return fmt.Errorf("organization not set. Run: resumechat%s login <organization>", profileFlag())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := api.NewClient(s.cfg)
	out := api.NewStreamDisplay(nil)

	fmt.Println()
	out.Start("답변 생성 중...")
	_, err = client.StreamChat(ctx, api.NewChatRequest(id, question), out.HandleText)
	out.Finish()

	if err != nil {
		observability.WithFields("organization", id.Organization).Error("ask failed", "error", err)
		if out.Started() {
			fmt.Println()
		}
		return fmt.Errorf("%s (%w)", chat.ErrorText, err)
	}
	fmt.Println()
	return nil
}

// ─── login / logout / whoami ─────────────────────────────────────────────────

func cmdLogin(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: resumechat login <organization>")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  resumechat login Acme")
		fmt.Println(`  resumechat login "서울대학교 컴퓨터공학부"`)
		return nil
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.gate.Submit(strings.Join(args, " "))
	if errors.Is(err, identity.ErrEmptyOrganization) {
		return errors.New(identity.PromptText)
	}
	if err != nil {
		return err
	}

	display.Success(fmt.Sprintf("Logged in as %s", id.Organization))
	return nil
}

func cmdLogout() error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.gate.Present() {
		display.Warn("Not logged in.")
		return nil
	}
	if err := s.gate.Logout(); err != nil {
		return err
	}
	display.Success("Logged out")
	return nil
}

func cmdWhoami() error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	id, ok := s.gate.Current()
	if !ok {
		display.Warn(fmt.Sprintf("Not logged in. Run: resumechat%s login <organization>", profileFlag()))
		return nil
	}
	display.Info("Organization:", id.Organization)
	return nil
}

// ─── set / config ────────────────────────────────────────────────────────────

func cmdSet(args []string) error {
	if len(args) < 2 {
		fmt.Println("Usage: resumechat set <key> <value>")
		fmt.Println()
		fmt.Println("Keys:")
		fmt.Println("  api_url          Chat service URL  (e.g. http://localhost:8000)")
		fmt.Println("  storage          Identity storage backend (file, sqlite)")
		fmt.Println("  storage_path     Storage file location")
		fmt.Println("  log_file         Log file location")
		fmt.Println("  markdown_style   Reply rendering (dark, light, notty, auto)")
		fmt.Println("  request_timeout  Overall request timeout, e.g. 2m (0 disables)")
		return nil
	}

	cfg, err := config.LoadFile(activeProfile)
	if err != nil {
		return err
	}

	key, value := args[0], strings.Join(args[1:], " ")
	if err := applySetting(cfg, key, value); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("%s set to %s", key, value))
	return nil
}

// applySetting validates and assigns one config key.
func applySetting(cfg *config.Config, key, value string) error {
	switch key {
	case "api_url", "server":
		u := strings.TrimRight(value, "/")
		if err := config.CheckURL(u); err != nil {
			return err
		}
		cfg.APIURL = u
	case "storage":
		if value != kvstore.BackendFile && value != kvstore.BackendSQLite {
			return fmt.Errorf("invalid storage %q (valid: %s, %s)", value, kvstore.BackendFile, kvstore.BackendSQLite)
		}
		cfg.Storage = value
	case "storage_path":
		cfg.StoragePath = value
	case "log_file":
		cfg.LogFile = value
	case "markdown_style":
		switch value {
		case "dark", "light", "notty", "auto":
		default:
			return fmt.Errorf("invalid markdown_style %q (valid: dark, light, notty, auto)", value)
		}
		cfg.MarkdownStyle = value
	case "request_timeout":
		var d config.Duration
		if value != "0" {
			if err := d.UnmarshalText([]byte(value)); err != nil {
				return err
			}
		}
		if d.Duration < 0 {
			return fmt.Errorf("request_timeout must not be negative")
		}
		cfg.RequestTimeout = d
	default:
		return fmt.Errorf("unknown config key: %s (valid: api_url, storage, storage_path, log_file, markdown_style, request_timeout)", key)
	}
	return nil
}

func cmdConfig() error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	cfg := s.cfg

	display.Header("Résumé Chat Configuration")

	display.Info("Profile:", config.ProfileName(activeProfile))
	display.Info("API URL:", display.NotSet(cfg.APIURL))
	display.Info("Storage:", cfg.Storage)
	display.Info("Storage Path:", cfg.StoragePath)
	display.Info("Log File:", cfg.LogFile)
	display.Info("Markdown:", cfg.MarkdownStyle)

	timeout := display.Dim + "(none)" + display.Reset
	if cfg.RequestTimeout.Duration > 0 {
		timeout = cfg.RequestTimeout.String()
	}
	display.Info("Request Timeout:", timeout)

	org := ""
	if id, ok := s.gate.Current(); ok {
		org = id.Organization
	}
	display.Info("Organization:", display.NotSet(org))
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		display.Warn(err.Error())
	}
	return nil
}

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func parseGlobalFlags(args []string) []string {
	var remaining []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--profile":
			if i+1 < len(args) {
				i++
				activeProfile = args[i]
			}
			continue
		case "--debug":
			debugLogging = true
			continue
		}
		remaining = append(remaining, args[i])
	}
	return remaining
}

func profileFlag() string {
	if activeProfile == "" {
		return ""
	}
	return " --profile " + activeProfile
}

func versionString() string {
	s := "resumechat " + version
	if commit == "none" || commit == "" {
		return s
	}
	return fmt.Sprintf("%s\ncommit: %s\nbuilt:  %s", s, commit, date)
}

func printUsage() {
	fmt.Printf(`%sresumechat%s: chat with a résumé from the terminal (%s)

%sUsage:%s
  resumechat                                            Launch interactive mode (default)
  resumechat [--profile <name>] <command> [arguments]   Run a specific command

%sGetting Started:%s
  set api_url <url>         Point at the chat service
  login <organization>      Save your organization
  config                    Show current configuration

%sChat:%s
  ask "<question>"          Ask one question and stream the answer
  whoami                    Show your organization
  logout                    Forget your organization

%sSettings:%s
  set storage <file|sqlite>        Identity storage backend
  set markdown_style <style>       dark, light, notty or auto
  set request_timeout <duration>   e.g. 2m; 0 disables

%sProfiles:%s
  profiles                  List all config profiles
  --profile <name>          Use a named config profile (default: unnamed)
  --debug                   Write debug records to the log file

%sExamples:%s
  resumechat set api_url http://localhost:8000
  resumechat login Acme
  resumechat ask "주요 프로젝트 경험에 대해 설명해주세요."
  resumechat --profile staging

`, display.Bold, display.Reset, version,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset)
}
