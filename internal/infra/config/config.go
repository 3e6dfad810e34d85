// Package config provides configuration loading from YAML or TOML files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/osa030/autologout/internal/app/idle"
)

// Config represents the application configuration.
type Config struct {
	Idle     IdleConfig     `yaml:"idle" toml:"idle"`
	Portal   PortalConfig   `yaml:"portal" toml:"portal"`
	Page     PageConfig     `yaml:"page" toml:"page"`
	Host     HostConfig     `yaml:"host" toml:"host"`
	Messages MessagesConfig `yaml:"messages" toml:"messages"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Hooks    HooksConfig    `yaml:"hooks" toml:"hooks"`
}

// IdleConfig represents the idle timeout policy.
// The total timeout includes the warning grace period.
type IdleConfig struct {
	TotalTimeout  time.Duration `yaml:"total_timeout" toml:"total_timeout" default:"30m" validate:"gt=0"`
	WarningGrace  time.Duration `yaml:"warning_grace" toml:"warning_grace" default:"90s" validate:"gt=0"`
	FlashInterval time.Duration `yaml:"flash_interval" toml:"flash_interval" default:"750ms" validate:"gte=100ms"`
	Activities    []string      `yaml:"activities" toml:"activities" validate:"dive,oneof=pointer_move pointer_down key_press touch_move focus scroll visibility_change"`
}

// PortalConfig represents the web portal whose session is being watched.
type PortalConfig struct {
	BaseURL           string        `yaml:"base_url" toml:"base_url" default:"http://localhost:8080" validate:"required,url"`
	LogoutPath        string        `yaml:"logout_path" toml:"logout_path" default:"/logout" validate:"startswith=/"`
	LandingPath       string        `yaml:"landing_path" toml:"landing_path" default:"/" validate:"startswith=/"`
	Timeout           time.Duration `yaml:"timeout" toml:"timeout" default:"10s" validate:"gt=0"`
	SessionCookieName string        `yaml:"session_cookie_name" toml:"session_cookie_name" default:"sessionid"`
	SessionCookie     string        `yaml:"session_cookie" toml:"session_cookie"`
}

// PageConfig represents the page the host renders.
type PageConfig struct {
	Title         string `yaml:"title" toml:"title" default:"Research Portal"`
	IconHref      string `yaml:"icon_href" toml:"icon_href" default:"/static/images/favicon.ico"`
	AlertIconHref string `yaml:"alert_icon_href" toml:"alert_icon_href" default:"/static/images/exclamation_mark_red.png"`
	AnimateClass  string `yaml:"animate_class" toml:"animate_class" default:"logout-animate"`
}

// HostConfig selects the host surface and its settings.
type HostConfig struct {
	Type     string         `yaml:"type" toml:"type" default:"terminal" validate:"required"`
	Settings map[string]any `yaml:"settings" toml:"settings"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	AlertTitle           string `yaml:"alert_title" toml:"alert_title" default:"Logging out in {seconds} seconds!"`
	Warning              string `yaml:"warning" toml:"warning" default:"You will be logged out soon due to inactivity. Move the mouse or press a key to stay logged in."`
	LoggedOutTitlePrefix string `yaml:"logged_out_title_prefix" toml:"logged_out_title_prefix" default:"You have been logged out - "`
	LoggedOut            string `yaml:"logged_out" toml:"logged_out" default:"You were logged out. Links will redirect to the login page."`
	Confirm              string `yaml:"confirm" toml:"confirm" default:"This tab has timed out. Select Cancel (Esc) to stay on this page, or OK (Enter) to go to the login page."`
}

// MetricsConfig represents the Prometheus endpoint configuration.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
	Path string `yaml:"path" toml:"path" default:"/metrics" validate:"startswith=/"`
}

// HooksConfig lists shell commands run at each stage.
type HooksConfig struct {
	OnWarning   []string `yaml:"on_warning" toml:"on_warning"`
	OnLoggedOut []string `yaml:"on_logged_out" toml:"on_logged_out"`
	OnStopped   []string `yaml:"on_stopped" toml:"on_stopped"`
}

// envOverrides are the environment variables that take precedence over the file.
type envOverrides struct {
	PortalBaseURL       string `envconfig:"PORTAL_BASE_URL"`
	PortalSessionCookie string `envconfig:"PORTAL_SESSION_COOKIE"`
	HostType            string `envconfig:"AUTOLOGOUT_HOST"`
}

// Default returns a validated configuration built from defaults and the
// environment, with no file read.
func Default() (*Config, error) {
	var cfg Config
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// Load loads configuration from a YAML file, or a TOML file when the path ends in .toml.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return errors.Wrap(err, "failed to read environment")
	}

	if env.PortalBaseURL != "" {
		c.Portal.BaseURL = env.PortalBaseURL
	}
	if env.PortalSessionCookie != "" {
		c.Portal.SessionCookie = env.PortalSessionCookie
	}
	if env.HostType != "" {
		c.Host.Type = env.HostType
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Idle.WarningGrace >= c.Idle.TotalTimeout {
		return errors.Newf("warning_grace (%v) must be shorter than total_timeout (%v)",
			c.Idle.WarningGrace, c.Idle.TotalTimeout)
	}

	return nil
}

// UntilWarning returns the idle time before the warning is shown.
func (c *Config) UntilWarning() time.Duration {
	return c.Idle.TotalTimeout - c.Idle.WarningGrace
}

// ActivityKinds returns the configured activity kinds, or every kind when none are listed.
func (c *Config) ActivityKinds() []idle.ActivityKind {
	if len(c.Idle.Activities) == 0 {
		return idle.AllActivities()
	}
	kinds := make([]idle.ActivityKind, 0, len(c.Idle.Activities))
	for _, name := range c.Idle.Activities {
		if kind, ok := idle.ParseActivity(name); ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// MonitorConfig builds the idle monitor configuration.
func (c *Config) MonitorConfig() idle.Config {
	return idle.Config{
		UntilWarning:         c.UntilWarning(),
		AfterWarning:         c.Idle.WarningGrace,
		FlashInterval:        c.Idle.FlashInterval,
		LogoutTimeout:        c.Portal.Timeout,
		Activities:           c.ActivityKinds(),
		AlertTitle:           c.Messages.AlertTitle,
		AlertIconHref:        c.Page.AlertIconHref,
		WarningText:          c.Messages.Warning,
		LoggedOutTitlePrefix: c.Messages.LoggedOutTitlePrefix,
		LoggedOutText:        c.Messages.LoggedOut,
		AnimateClass:         c.Page.AnimateClass,
		ConfirmMessage:       c.Messages.Confirm,
		LandingPath:          c.Portal.LandingPath,
	}
}
