// Package config loads runtime settings from the environment. A .env file is
// read first when present, then environment variables override the defaults
// and finally command-line flags override the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the server.
type Config struct {
	Port        string
	MongoURI    string
	MongoDB     string
	JWTSecret   string
	FrontendURL string
	SMTP        SMTPConfig
	Chat        ChatConfig
	LogLevel    string
	LogFormat   string
}

// SMTPConfig describes the outbound mail transport.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

// Enabled reports whether a mail host is configured.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// ChatConfig describes the generative-language API used by the chat proxy.
type ChatConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotenv loads variables from path, or from ./.env when path is empty.
// Variables already present in the environment are not overwritten.
func LoadDotenv(path string) error {
	if path == "" {
		return godotenv.Load()
	}
	return godotenv.Load(path)
}

// FromEnv builds a Config from lookup, applying defaults for unset variables.
func FromEnv(lookup LookupFunc) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:        get("PORT", "8080"),
		MongoURI:    get("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     get("MONGO_DB", "authchat"),
		JWTSecret:   get("JWT_SECRET", ""),
		FrontendURL: get("FRONTEND_URL", "http://localhost:3000"),
		SMTP: SMTPConfig{
			Host:     get("SMTP_HOST", ""),
			User:     get("SMTP_USER", ""),
			Password: get("SMTP_PASS", ""),
		},
		Chat: ChatConfig{
			APIKey: get("GEMINI_API_KEY", ""),
			Model:  get("CHAT_MODEL", "gemini-2.0-flash"),
		},
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "json"),
	}
	cfg.SMTP.From = get("MAIL_FROM", cfg.SMTP.User)

	var err error
	if cfg.SMTP.Port, err = strconv.Atoi(get("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if cfg.SMTP.Timeout, err = time.ParseDuration(get("MAIL_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid MAIL_TIMEOUT: %w", err)
	}
	if cfg.Chat.Timeout, err = time.ParseDuration(get("CHAT_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid CHAT_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	if u, err := url.Parse(c.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid FRONTEND_URL %q", c.FrontendURL))
	}
	if c.SMTP.Enabled() && (c.SMTP.Port < 1 || c.SMTP.Port > 65535) {
		errs = append(errs, fmt.Errorf("invalid SMTP_PORT %d", c.SMTP.Port))
	}
	if c.SMTP.Timeout <= 0 || c.Chat.Timeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
