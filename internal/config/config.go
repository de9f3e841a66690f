// Package config loads runtime settings from flags, FITFLOW_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds every setting of the fitflow binary.
type Config struct {
	Addr        string `mapstructure:"addr"`
	WebDir      string `mapstructure:"web_dir"`
	Store       string `mapstructure:"store"`
	DatabaseURL string `mapstructure:"database_url"`
	OutboxDir   string `mapstructure:"outbox_dir"`

	UndoWindow        time.Duration `mapstructure:"undo_window"`
	AutoCommitDelay   time.Duration `mapstructure:"autocommit_delay"`
	AutoCommitEnabled bool          `mapstructure:"autocommit_enabled"`
	RemoteTimeout     time.Duration `mapstructure:"remote_timeout"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReconcileRate     float64       `mapstructure:"reconcile_rate"`

	PhotoBucket    string `mapstructure:"photo_bucket"`
	GCSCredentials string `mapstructure:"gcs_credentials"`

	OIDCIssuer       string `mapstructure:"oidc_issuer"`
	OIDCClientID     string `mapstructure:"oidc_client_id"`
	OIDCClientSecret string `mapstructure:"oidc_client_secret"`
	OIDCRedirectURL  string `mapstructure:"oidc_redirect_url"`

	InitialEmail    string `mapstructure:"initial_email"`
	InitialPassword string `mapstructure:"initial_password"`

	LogFormat string `mapstructure:"log_format"`
	LogLevel  string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"addr":               ":8080",
	"web_dir":            "web",
	"store":              StorePostgres,
	"database_url":       "",
	"outbox_dir":         "",
	"undo_window":        5 * time.Second,
	"autocommit_delay":   3 * time.Second,
	"autocommit_enabled": true,
	"remote_timeout":     10 * time.Second,
	"reconcile_interval": time.Minute,
	"reconcile_rate":     5.0,
	"photo_bucket":       "",
	"gcs_credentials":    "",
	"oidc_issuer":        "",
	"oidc_client_id":     "",
	"oidc_client_secret": "",
	"oidc_redirect_url":  "",
	"initial_email":      "",
	"initial_password":   "",
	"log_format":         "json",
	"log_level":          "info",
}

// New returns a viper instance with defaults and environment binding set
// up. Flags may be bound to it before Load is called.
func New() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix("FITFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// DATABASE_URL is what most hosting platforms inject.
	_ = v.BindEnv("database_url", "FITFLOW_DATABASE_URL", "DATABASE_URL")
	return v
}

// Load reads the optional config file and decodes the settings.
func Load(v *viper.Viper, file string) (Config, error) {
	var cfg Config
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("error reading config file %s: %w", file, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store))
	}
	if c.UndoWindow <= 0 {
		errs = append(errs, errors.New("undo_window must be positive"))
	}
	if c.AutoCommitDelay <= 0 {
		errs = append(errs, errors.New("autocommit_delay must be positive"))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, errors.New("remote_timeout must be positive"))
	}
	if c.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("reconcile_interval must be positive"))
	}
	if c.ReconcileRate <= 0 {
		errs = append(errs, errors.New("reconcile_rate must be positive"))
	}
	if c.GCSCredentials != "" && c.PhotoBucket == "" {
		errs = append(errs, errors.New("gcs_credentials is set but photo_bucket is empty"))
	}
	if c.OIDCIssuer != "" && (c.OIDCClientID == "" || c.OIDCRedirectURL == "") {
		errs = append(errs, errors.New("oidc_issuer requires oidc_client_id and oidc_redirect_url"))
	}
	if (c.InitialEmail == "") != (c.InitialPassword == "") {
		errs = append(errs, errors.New("initial_email and initial_password must be set together"))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// SSOEnabled reports whether OpenID Connect sign-in is configured.
func (c Config) SSOEnabled() bool { return c.OIDCIssuer != "" }

// Logger builds the process logger. Call after Validate.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
