package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const configDir = ".resumechat"
const configFile = "config.toml"

// Environment overrides, highest precedence.
const (
	EnvAPIURL     = "RESUMECHAT_API_URL"
	EnvViteAPIURL = "VITE_API_URL"
	EnvStorage    = "RESUMECHAT_STORAGE"
	EnvLogFile    = "RESUMECHAT_LOG_FILE"
)

type Config struct {
	APIURL         string   `toml:"api_url"`
	Storage        string   `toml:"storage,omitempty"`
	StoragePath    string   `toml:"storage_path,omitempty"`
	LogFile        string   `toml:"log_file,omitempty"`
	MarkdownStyle  string   `toml:"markdown_style,omitempty"`
	RequestTimeout Duration `toml:"request_timeout,omitempty"`
	Profile        string   `toml:"-"`

	// resolved marks a config filled in by Load.
	resolved bool
}

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return []byte(""), nil
	}
	return []byte(d.Duration.String()), nil
}

// Dir is the directory holding config, storage and logs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

func configPath(profile string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	filename := configFile
	if profile != "" {
		filename = fmt.Sprintf("config-%s.toml", profile)
	}
	return filepath.Join(dir, filename), nil
}

// LoadFile reads only what the profile's config file holds (missing is
// fine). Commands that edit and Save the file start from here so derived
// defaults and environment overrides never reach disk.
func LoadFile(profile string) (*Config, error) {
	path, err := configPath(profile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Profile = profile
	return cfg, nil
}

// Load reads the profile's config file, then applies .env and environment
// overrides and fills defaults. The result is for use, not for Save.
func Load(profile string) (*Config, error) {
	cfg, err := LoadFile(profile)
	if err != nil {
		return nil, err
	}

	// .env is optional; it mirrors how the web build picked up VITE_API_URL.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	cfg.resolved = true
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvViteAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		c.Storage = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
}

func (c *Config) applyDefaults() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	suffix := ""
	if c.Profile != "" {
		suffix = "-" + c.Profile
	}
	if c.Storage == "" {
		c.Storage = "file"
	}
	if c.StoragePath == "" {
		switch c.Storage {
		case "sqlite":
			c.StoragePath = filepath.Join(dir, "storage"+suffix+".db")
		default:
			c.StoragePath = filepath.Join(dir, "storage"+suffix+".json")
		}
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(dir, "chat"+suffix+".log")
	}
	if c.MarkdownStyle == "" {
		c.MarkdownStyle = "dark"
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return nil
}

// ErrResolvedSave is returned when saving a config produced by Load.
var ErrResolvedSave = errors.New("config holds derived defaults; edit a LoadFile config instead")

// Save writes the config file. Only user-set values are written; a config
// from Load is refused.
func (c *Config) Save() error {
	if c.resolved {
		return ErrResolvedSave
	}
	path, err := configPath(c.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

func (c *Config) profileFlag() string {
	if c.Profile == "" {
		return ""
	}
	return " --profile " + c.Profile
}

// Validate checks that the chat service URL is usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("chat service URL not set. Run: resumechat%s set api_url <url> (or export %s)", c.profileFlag(), EnvAPIURL)
	}
	if err := CheckURL(c.APIURL); err != nil {
		return err
	}
	switch c.Storage {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid storage %q (valid: file, sqlite)", c.Storage)
	}
	switch c.MarkdownStyle {
	case "dark", "light", "notty", "auto":
	default:
		return fmt.Errorf("invalid markdown_style %q (valid: dark, light, notty, auto)", c.MarkdownStyle)
	}
	return nil
}

// CheckURL reports whether raw is an absolute http(s) URL.
func CheckURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid chat service URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}

func ListProfiles() ([]string, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config directory: %w", err)
	}
	var profiles []string
	for _, e := range entries {
		name := e.Name()
		if name == configFile {
			profiles = append(profiles, "default")
			continue
		}
		if strings.HasPrefix(name, "config-") && strings.HasSuffix(name, ".toml") {
			profiles = append(profiles, strings.TrimSuffix(strings.TrimPrefix(name, "config-"), ".toml"))
		}
	}
	return profiles, nil
}

func ProfileName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
