package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Embedding  Embedding  `yaml:"embedding"`
	Fetch      Fetch      `yaml:"fetch"`
	Index      Index      `yaml:"index"`
	Scoring    Scoring    `yaml:"scoring"`
	Enrichment Enrichment `yaml:"enrichment"`
	Digest     Digest     `yaml:"digest"`
	Retry      Retry      `yaml:"retry"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
}

type Embedding struct {
	Provider    string `yaml:"provider"`
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
}

type Fetch struct {
	MinSummaryLength int `yaml:"min_summary_length"`
	TimeoutSeconds   int `yaml:"timeout_seconds"`
}

type Index struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchLimit   int `yaml:"batch_limit"`
}

type Scoring struct {
	PoolSize int `yaml:"pool_size"`
	// Categories whose matches below MinScore are discarded before storage.
	MinScore           float64  `yaml:"min_score"`
	MinScoreCategories []string `yaml:"min_score_categories"`
	BatchLimit         int      `yaml:"batch_limit"`
}

type Enrichment struct {
	Tier1Threshold  float64  `yaml:"tier1_threshold"`
	Tier1Categories []string `yaml:"tier1_categories"`
	Tier2Categories []string `yaml:"tier2_categories"`
	Tier3Categories []string `yaml:"tier3_categories"`
	OrgQuantile     float64  `yaml:"org_quantile"`
}

type Digest struct {
	LookbackHours int     `yaml:"lookback_hours"`
	MinScore      float64 `yaml:"min_score"`
	// Scope entries are exact anchor names, or "TYPE:<category>" to admit a
	// whole source category. Empty scope admits everything.
	Scope         []string  `yaml:"scope"`
	PriorityName  string    `yaml:"priority_section"`
	PriorityLimit int       `yaml:"priority_limit"`
	Sections      []Section `yaml:"sections"`
	MorningCutoff int       `yaml:"morning_cutoff_hour"`
	WebhookURLEnv string    `yaml:"webhook_url_env"`
}

type Section struct {
	Name             string   `yaml:"name"`
	SourceCategories []string `yaml:"source_categories"`
	Limit            int      `yaml:"limit"`
}

type Retry struct {
	MaxAttempts    int `yaml:"max_attempts"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for ppi.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "ppi")
}

// DataDir returns the XDG data directory for ppi.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "ppi")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/ppi/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'ppi init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Embedding: Embedding{
			Provider:    "ollama",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "nomic-embed-text",
			OpenAIModel: "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
		},
		Fetch: Fetch{
			MinSummaryLength: 300,
			TimeoutSeconds:   20,
		},
		Index: Index{
			ChunkSize:    350,
			ChunkOverlap: 50,
			BatchLimit:   100,
		},
		Scoring: Scoring{
			PoolSize:           5,
			MinScore:           0.25,
			MinScoreCategories: []string{"News Media", "Misc. Research"},
			BatchLimit:         200,
		},
		Enrichment: Enrichment{
			Tier1Threshold:  0.20,
			Tier1Categories: []string{"Think Tank", "Misc. Research"},
			Tier2Categories: []string{"Government"},
			Tier3Categories: []string{"News Media"},
			OrgQuantile:     0.90,
		},
		Digest: Digest{
			LookbackHours: 48,
			MinScore:      0.30,
			PriorityName:  "Organizational Highlights",
			PriorityLimit: 5,
			MorningCutoff: 10,
			WebhookURLEnv: "TEAMS_WEBHOOK_URL",
		},
		Retry: Retry{
			MaxAttempts:    3,
			BackoffSeconds: 30,
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the SQLite file location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "ppi.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
