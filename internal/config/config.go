package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appLog "didacal/internal/log"
)

// NOTE: the config file is optional. The CLI runs on DefaultConfig when no
// --config path is given; an explicit path that does not exist yet is
// created with defaults on first run.

const (
	DefaultOutput       = "didactics_calendar.html"
	DefaultListen       = "127.0.0.1:8080"
	DefaultRefreshCron  = "*/15 * * * *"
	DefaultEventMinutes = 60
)

// PageConfig holds the fixed text of the rendered page.
type PageConfig struct {
	Title   string `yaml:"title" json:"title"`
	Heading string `yaml:"heading" json:"heading"`
	Notice  string `yaml:"notice" json:"notice"`
	LogoURL string `yaml:"logo_url" json:"logo_url"`
	LogoAlt string `yaml:"logo_alt" json:"logo_alt"`
	HomeURL string `yaml:"home_url" json:"home_url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the preview server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone used to decide what "today" is and to place
	// exported event times (e.g. "America/Los_Angeles"). Empty means local.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Output is the HTML path used when none is given on the command line.
	Output string `yaml:"output" json:"output"`

	// Sheet selects a worksheet by name. Empty reads the first sheet.
	Sheet string `yaml:"sheet" json:"sheet"`

	// CacheDir holds downloaded copies of http(s) workbook inputs. Empty
	// means the per-user cache directory.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICSOutput, if set, also writes the window as an iCalendar file.
	ICSOutput string `yaml:"ics_output" json:"ics_output"`

	// PreviewPNG, if set, screenshots the written page with headless Chromium.
	PreviewPNG string `yaml:"preview_png" json:"preview_png"`

	// EventMinutes is the length of timed events in the iCalendar export.
	EventMinutes int `yaml:"event_minutes" json:"event_minutes"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	Page PageConfig `yaml:"page" json:"page"`

	// Listen is the HTTP listen address of `serve`.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron schedule (e.g. "*/15 * * * *") on which `serve`
	// re-reads the workbook.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultPage is the page text used when the config leaves it out.
func DefaultPage() PageConfig {
	return PageConfig{
		Title:   "Didactics Calendar – UCI Dermatology",
		Heading: "Didactics Calendar",
		Notice: "Please note the following didactics calendar is intended as a preview of the scheduled didactics " +
			"for UCI Dermatology and is issued here up to a month in advance. " +
			"The final and official didactics schedule is distributed weekly via email at least five days prior to Friday didactics. " +
			"Any schedule posted here is subject to change without notification.",
		LogoURL: "https://sidharthchand.github.io/uci-pages/anteaterzotzot.jpeg",
		LogoAlt: "Anteater",
		HomeURL: "index.html",
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output:       DefaultOutput,
		EventMinutes: DefaultEventMinutes,
		LogLevel:     "info",
		Page:         DefaultPage(),
		Listen:       DefaultListen,
		RefreshCron:  DefaultRefreshCron,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.EventMinutes <= 0 {
		c.EventMinutes = DefaultEventMinutes
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}

	// Notice, logo and home link may be blanked on purpose.
	def := DefaultPage()
	if c.Page.Title == "" {
		c.Page.Title = def.Title
	}
	if c.Page.Heading == "" {
		c.Page.Heading = def.Heading
	}

	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		appLog.Info("basic_auth incomplete; disabling")
		c.BasicAuth = nil
	}
}

// Location resolves Timezone, falling back to time.Local when it is empty
// or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// EventDuration is EventMinutes as a duration.
func (c *Config) EventDuration() time.Duration {
	return time.Duration(c.EventMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If path is empty, the defaults are returned.
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - Otherwise the YAML is unmarshaled over the defaults and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	// Keys missing from the file keep their default values.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to path as YAML via WriteFileAtomic
// with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".didacal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
