package internal

import (
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Journal JournalConfig     `yaml:"journal"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Engine  EngineConfig      `yaml:"engine"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig holds the path to the plan journal directory.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CatalogConfig points at an optional marker catalog file. The embedded
// catalog is used when Path is empty.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig tunes the dashboard engine.
type EngineConfig struct {
	// Locale is a BCP 47 tag used to collate marker names.
	Locale string `yaml:"locale"`
	// FocusAreas optionally replaces the embedded focus-area keyword table.
	FocusAreas string `yaml:"focus_areas"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Locale, validation.Required, validation.By(validLocale)),
	)
}

// Tag returns the parsed locale.
func (c *EngineConfig) Tag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Swedish
	}
	return tag
}

func validLocale(value interface{}) error {
	s, _ := value.(string)
	if _, err := language.Parse(s); err != nil {
		return errors.New("must be a valid BCP 47 language tag")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Journal: JournalConfig{
			Path: "./journal",
		},
		SQLite: SQLiteConfig{
			Path: "./laguz.db",
		},
		Engine: EngineConfig{
			Locale: "sv",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
