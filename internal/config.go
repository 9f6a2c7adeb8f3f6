package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lorehold/biblioplex/internal/validate"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the full application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate checks every section and stops at the first failure.
func (c *Config) Validate() error {
	sections := []interface{ Validate() error }{
		&c.App, &c.Vault, &c.SQLite, &c.Auth,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VaultConfig describes the content vault.
//
// ContentDirs, when set, restricts validation and catalog scans to those
// vault subdirectories. SensitiveTags overrides the built-in tag set that
// makes a missing contentWarnings field advisory-worthy; leaving it unset
// keeps the defaults.
type VaultConfig struct {
	Path          string   `yaml:"path"`
	ContentDirs   []string `yaml:"content_dirs"`
	SensitiveTags []string `yaml:"sensitive_tags"`
}

// Validate requires a vault path.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EffectiveSensitiveTags returns the configured sensitive tag set, or the
// built-in defaults when none is configured.
func (c *VaultConfig) EffectiveSensitiveTags() []string {
	if c.SensitiveTags == nil {
		return validate.DefaultSensitiveTags
	}
	return c.SensitiveTags
}

// SQLiteConfig names the catalog database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate requires a database path.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ApplicationConfig carries process-level settings.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate checks the nested HTTP settings.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the listen address for the configured port.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate bounds the port to the valid TCP range.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig controls API authentication: "disabled" for local use, or
// "token" for Bearer token auth with a non-empty Token.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate normalises an empty mode to disabled and checks the rest.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	switch c.Mode {
	case AuthModeDisabled:
		return nil
	case AuthModeToken:
		if c.Token == "" {
			return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
		}
		return nil
	default:
		return fmt.Errorf("auth: unknown mode %q", c.Mode)
	}
}

// AuthEnabled reports whether requests must carry a token.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns the configuration used when no config file
// is present: a local vault, a catalog database alongside it, and no
// authentication.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
		},
		Vault:  VaultConfig{Path: "./vault"},
		SQLite: SQLiteConfig{Path: "./biblioplex.db"},
		Auth:   AuthConfig{Mode: AuthModeDisabled},
	}
}
