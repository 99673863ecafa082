// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Humanoid() HumanoidConfig
	Navigator() NavigatorConfig
	Server() ServerConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserEngine(string)

	// Server Setters
	SetServerTransport(string)
	SetServerPort(int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	HumanoidCfg  HumanoidConfig  `mapstructure:"humanoid" yaml:"humanoid"`
	NavigatorCfg NavigatorConfig `mapstructure:"navigator" yaml:"navigator"`
	ServerCfg    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Humanoid() HumanoidConfig   { return c.HumanoidCfg }
func (c *Config) Navigator() NavigatorConfig { return c.NavigatorCfg }
func (c *Config) Server() ServerConfig       { return c.ServerCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)   { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserEngine(e string)   { c.BrowserCfg.Engine = e }
func (c *Config) SetServerTransport(t string) { c.ServerCfg.Transport = t }
func (c *Config) SetServerPort(p int)         { c.ServerCfg.Port = p }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Supported browser engines.
const (
	EnginePlaywright = "playwright"
	EngineCDP        = "cdp"
)

// BrowserConfig holds settings for the automated browser.
type BrowserConfig struct {
	Engine   string   `mapstructure:"engine" yaml:"engine"`
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Args     []string `mapstructure:"args" yaml:"args"`
	// RemoteURL attaches the cdp engine to an already running browser
	// (ws:// or http:// debugger endpoint) instead of spawning one.
	RemoteURL     string         `mapstructure:"remote_url" yaml:"remote_url"`
	ExecPath      string         `mapstructure:"exec_path" yaml:"exec_path"`
	Install       bool           `mapstructure:"install" yaml:"install"`
	LaunchTimeout time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	Viewport      ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	Persona       PersonaConfig  `mapstructure:"persona" yaml:"persona"`
}

// ViewportConfig is the page viewport in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// PersonaConfig is the browser identity presented to sites.
type PersonaConfig struct {
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"`
	Platform  string   `mapstructure:"platform" yaml:"platform"`
	Languages []string `mapstructure:"languages" yaml:"languages"`
	Timezone  string   `mapstructure:"timezone" yaml:"timezone"`
	Locale    string   `mapstructure:"locale" yaml:"locale"`
}

// NavigatorConfig tunes the operation facade.
type NavigatorConfig struct {
	// VisibilityTimeout bounds the wait for a gesture target to become visible.
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" yaml:"visibility_timeout"`
	// OperationTimeout bounds a whole operation; zero disables it.
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// Supported MCP transports. "sse" is accepted as an alias of "http".
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name           string        `mapstructure:"name" yaml:"name"`
	Transport      string        `mapstructure:"transport" yaml:"transport"`
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           int           `mapstructure:"port" yaml:"port"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst          int           `mapstructure:"burst" yaml:"burst"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// Addr is the host:port the HTTP transport listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webnav-mcp")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.engine", EnginePlaywright)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.install", false)
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.viewport.width", 1366)
	v.SetDefault("browser.viewport.height", 768)
	v.SetDefault("browser.persona.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("browser.persona.platform", "Win32")
	v.SetDefault("browser.persona.languages", []string{"en-US", "en"})
	v.SetDefault("browser.persona.timezone", "America/New_York")
	v.SetDefault("browser.persona.locale", "en-US")

	// -- Humanoid --
	setHumanoidDefaults(v)

	// -- Navigator --
	v.SetDefault("navigator.visibility_timeout", "10s")
	v.SetDefault("navigator.operation_timeout", "2m")

	// -- Server --
	v.SetDefault("server.name", "web-navigator")
	v.SetDefault("server.transport", TransportSSE)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_connections", 64)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.burst", 40)
	v.SetDefault("server.shutdown_grace", "10s")
}

var containerEnv = []struct{ key, env string }{
	{"server.transport", "MCP_TRANSPORT"},
	{"browser.headless", "MCP_HEADLESS"},
	{"server.port", "PORT"},
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The container image is driven by these unprefixed variables.
	for _, b := range containerEnv {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s to %s: %w", b.env, b.key, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.LoggerCfg.LogFile, &c.BrowserCfg.ExecPath} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.BrowserCfg.Engine {
	case EnginePlaywright, EngineCDP:
	default:
		return fmt.Errorf("browser.engine must be %q or %q, got %q", EnginePlaywright, EngineCDP, c.BrowserCfg.Engine)
	}
	if c.BrowserCfg.Viewport.Width <= 0 || c.BrowserCfg.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport dimensions must be positive")
	}
	if c.BrowserCfg.LaunchTimeout < 0 {
		return fmt.Errorf("browser.launch_timeout must not be negative")
	}
	if c.NavigatorCfg.VisibilityTimeout <= 0 {
		return fmt.Errorf("navigator.visibility_timeout must be a positive duration")
	}
	if err := c.ServerCfg.Validate(); err != nil {
		return fmt.Errorf("server configuration invalid: %w", err)
	}
	if err := c.HumanoidCfg.Validate(); err != nil {
		return fmt.Errorf("humanoid configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the server settings.
func (s *ServerConfig) Validate() error {
	s.Transport = strings.ToLower(strings.TrimSpace(s.Transport))
	switch s.Transport {
	case TransportStdio, TransportHTTP, TransportSSE:
	default:
		return fmt.Errorf("transport must be one of stdio, http, sse; got %q", s.Transport)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if s.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}
	if s.RateLimit < 0 || s.Burst < 0 {
		return fmt.Errorf("rate_limit and burst must not be negative")
	}
	return nil
}
