package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig                 `yaml:"app"`
	Gateways   map[string]GatewayConfig  `yaml:"gateways"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Memory     MemoryConfig              `yaml:"memory"`
	Governance GovernanceConfig          `yaml:"governance"`
	Approval   ApprovalConfig            `yaml:"approval"`
}

type AppConfig struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	DataDir    string `yaml:"data_dir"`
	PromptsDir string `yaml:"prompts_dir"`
	LogDir     string `yaml:"log_dir"`
}

type GatewayConfig struct {
	Token           string `yaml:"token"`
	Enabled         bool   `yaml:"enabled"`
	RequireApproval bool   `yaml:"require_approval"`
}

type ProviderConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url,omitempty"`
	MaxTokens int    `yaml:"max_tokens"`
	Enabled   bool   `yaml:"enabled"`
}

// MemoryConfig selects the execution history backend: "memory" or "sqlite".
type MemoryConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

type GovernanceConfig struct {
	DisabledAgents []string `yaml:"disabled_agents"`
	DeniedActions  []string `yaml:"denied_actions"`
}

// ApprovalConfig picks the plan approver used by the HTTP API and CLI:
// "console", "approve" or "reject".
type ApprovalConfig struct {
	Mode string `yaml:"mode"`
}

const (
	MemoryTypeMemory = "memory"
	MemoryTypeSQLite = "sqlite"

	ApprovalConsole = "console"
	ApprovalApprove = "approve"
	ApprovalReject  = "reject"
)

// OpenAICompatible lists the provider names served by the OpenAI client.
var OpenAICompatible = map[string]bool{
	"openai":     true,
	"openrouter": true,
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:       "UK Estate Agency AI",
			Host:       "0.0.0.0",
			Port:       8000,
			DataDir:    "demo_mock_data",
			PromptsDir: "prompts",
			LogDir:     "logs",
		},
		Gateways: map[string]GatewayConfig{},
		Providers: map[string]ProviderConfig{
			"openai": {
				Model:     "gpt-4o",
				MaxTokens: 2000,
				Enabled:   true,
			},
		},
		Memory:   MemoryConfig{Type: MemoryTypeMemory},
		Approval: ApprovalConfig{Mode: ApprovalConsole},
	}
}

// LoadConfig reads .env files, the YAML config at path (optional) and
// environment overrides, in that order of increasing precedence.
func LoadConfig(path string) (*Config, error) {
	LoadDotEnv(filepath.Join(filepath.Dir(path), ".env"))

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var top map[string]any
		if err := yaml.Unmarshal(data, &top); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
		// A providers section replaces the defaults instead of merging into them.
		if _, ok := top["providers"]; ok {
			cfg.Providers = nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg.expand()
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadDotEnv loads the given .env files and ./.env. Variables that are
// already set are never overwritten.
func LoadDotEnv(paths ...string) {
	for _, p := range append(paths, ".env") {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("Warning: failed to load %s: %v", p, err)
		}
	}
}

func (c *Config) expand() {
	for name, p := range c.Providers {
		p.APIKey = os.ExpandEnv(p.APIKey)
		p.BaseURL = os.ExpandEnv(p.BaseURL)
		c.Providers[name] = p
	}
	for name, g := range c.Gateways {
		g.Token = os.ExpandEnv(g.Token)
		c.Gateways[name] = g
	}
	c.App.DataDir = os.ExpandEnv(c.App.DataDir)
	c.Memory.Path = os.ExpandEnv(c.Memory.Path)
}

func (c *Config) applyEnv() {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Gateways == nil {
		c.Gateways = map[string]GatewayConfig{}
	}

	openai := c.Providers["openai"]
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		openai.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		openai.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		openai.BaseURL = v
	}
	if _, ok := c.Providers["openai"]; ok || openai.APIKey != "" {
		c.Providers["openai"] = openai
	}

	if v := os.Getenv("ESTATE_DATA_DIR"); v != "" {
		c.App.DataDir = v
	}
	if v := os.Getenv("ESTATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.App.Port = port
		} else {
			log.Printf("Warning: ignoring ESTATE_PORT=%q: %v", v, err)
		}
	}

	for name, env := range map[string]string{"telegram": "TELEGRAM_BOT_TOKEN", "discord": "DISCORD_BOT_TOKEN"} {
		if v := os.Getenv(env); v != "" {
			g := c.Gateways[name]
			g.Token = v
			c.Gateways[name] = g
		}
	}
}

// Validate reports configuration that cannot work at all. A missing API
// key is not an error: LLM calls degrade to error text instead.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.App.Port)
	}
	switch c.Memory.Type {
	case "", MemoryTypeMemory:
	case MemoryTypeSQLite:
		if c.Memory.Path == "" {
			return errors.New("memory.path is required for sqlite history")
		}
	default:
		return fmt.Errorf("unknown memory type %q", c.Memory.Type)
	}
	switch c.Approval.Mode {
	case "", ApprovalConsole, ApprovalApprove, ApprovalReject:
	default:
		return fmt.Errorf("unknown approval mode %q", c.Approval.Mode)
	}
	for name, p := range c.Providers {
		if p.Enabled && !OpenAICompatible[name] {
			return fmt.Errorf("provider %q is not supported, use openai or openrouter", name)
		}
	}
	return nil
}

// GetDefaultProvider returns the first enabled provider by name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGatewayConfig returns a gateway config if it is enabled and has a token.
func (c *Config) GetGatewayConfig(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}
