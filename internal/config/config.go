package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/bizpanel/internal/domain/llm"
)

// Provider types yang didukung
const (
	TypeOpenAI    = "openai"
	TypeLMStudio  = "lm_studio"
	TypeOllama    = "ollama"
	TypeAnthropic = "anthropic"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database Database `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		Prefix     string `yaml:"prefix"`
	} `yaml:"minio"`

	Workers   int       `yaml:"workers"`
	Execution Execution `yaml:"execution"`

	Providers []Provider       `yaml:"providers"`
	Agents    map[string]Agent `yaml:"agents"`
	LeadAgent string           `yaml:"lead_agent"`
}

type Database struct {
	Driver   string `yaml:"driver"` // mysql | postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
	Path     string `yaml:"path"` // sqlite file
}

// Execution is the retry policy of agent and orchestration tasks.
type Execution struct {
	MaxRetries             int           `yaml:"max_retries"`
	RetryDelay             time.Duration `yaml:"retry_delay"`
	OrchestratorRetries    int           `yaml:"orchestrator_retries"`
	OrchestratorRetryDelay time.Duration `yaml:"orchestrator_retry_delay"`
}

// Provider is one model backend entry.
type Provider struct {
	Name            string        `yaml:"name"`
	Type            string        `yaml:"type"`
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	MaxTokens       int           `yaml:"max_tokens"`
	Temperature     *float64      `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	CostPer1kTokens *float64      `yaml:"cost_per_1k_tokens"`
	Active          *bool         `yaml:"active"`
	Default         bool          `yaml:"default"`
}

// Agent overrides routing and generation options of one roster member.
type Agent struct {
	Backend     string        `yaml:"backend"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	TopP        *float64      `yaml:"top_p"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Load baca file config.yaml. ${VAR} di dalam file diganti dari environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes raw YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns CONFIG_PATH or config.yaml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "bizpanel.db"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Execution.MaxRetries == 0 {
		c.Execution.MaxRetries = 2
	}
	if c.Execution.RetryDelay == 0 {
		c.Execution.RetryDelay = 30 * time.Second
	}
	if c.Execution.OrchestratorRetries == 0 {
		c.Execution.OrchestratorRetries = 3
	}
	if c.Execution.OrchestratorRetryDelay == 0 {
		c.Execution.OrchestratorRetryDelay = 60 * time.Second
	}
	if c.LeadAgent == "" {
		c.LeadAgent = "CEO"
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		p.Type = strings.ToLower(p.Type)
		if p.Name == "" {
			p.Name = p.Type
		}
		if p.MaxTokens <= 0 {
			p.MaxTokens = 4000
		}
		if p.Temperature == nil {
			t := 0.7
			p.Temperature = &t
		}
		if p.Timeout <= 0 {
			p.Timeout = 30 * time.Second
		}
		if p.Active == nil {
			on := true
			p.Active = &on
		}
		if p.CostPer1kTokens == nil {
			cost := 0.0
			if p.Type == TypeOpenAI {
				cost = 0.03
			}
			p.CostPer1kTokens = &cost
		}
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: must be mysql, postgres or sqlite", c.Database.Driver))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}

	seen := map[string]bool{}
	defaults := 0
	for _, p := range c.Providers {
		switch p.Type {
		case TypeOpenAI, TypeLMStudio, TypeOllama, TypeAnthropic:
		default:
			errs = append(errs, fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type))
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("provider %q: duplicate name", p.Name))
		}
		seen[p.Name] = true
		if p.Default {
			defaults++
			if p.Active != nil && !*p.Active {
				errs = append(errs, fmt.Errorf("provider %q: default backend must be active", p.Name))
			}
		}
	}
	if defaults > 1 {
		errs = append(errs, errors.New("at most one provider may be marked default"))
	}
	for name, a := range c.Agents {
		if a.Backend != "" && !seen[a.Backend] {
			errs = append(errs, fmt.Errorf("agents.%s: backend %q is not configured", name, a.Backend))
		}
	}
	return errors.Join(errs...)
}

// Backend converts a provider entry into the backend configuration boundary.
func (p Provider) Backend() llm.BackendConfig {
	bc := llm.BackendConfig{
		Name:         p.Name,
		Type:         p.Type,
		Endpoint:     p.Endpoint,
		APIKey:       p.APIKey,
		DefaultModel: p.Model,
		MaxTokens:    p.MaxTokens,
		Timeout:      p.Timeout,
	}
	if p.Temperature != nil {
		bc.Temperature = *p.Temperature
	}
	if p.CostPer1kTokens != nil {
		bc.CostPer1kTokens = *p.CostPer1kTokens
	}
	return bc
}

// IsActive treats a missing flag as active.
func (p Provider) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Options returns the per-call generation options of an agent entry.
func (a Agent) Options() llm.Options {
	return llm.Options{
		Model:       a.Model,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
		TopP:        a.TopP,
		Timeout:     a.Timeout,
	}
}
