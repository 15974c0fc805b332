package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode       string `yaml:"mode"`        // RULE_BASED or LLM
	DataSource string `yaml:"data_source"` // MOCK or LIVE
	Universe   struct {
		Static []string `yaml:"static"`
	} `yaml:"universe"`
	Analysis struct {
		LookbackDays    int     `yaml:"lookback_days"`
		MaxConcurrency  int     `yaml:"max_concurrency"`
		SparseThreshold float64 `yaml:"sparse_threshold"`
	} `yaml:"analysis"`
	Cache struct {
		Dir     string `yaml:"dir"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"cache"`
	Provider struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxRetries        int     `yaml:"max_retries"`
	} `yaml:"provider"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
	} `yaml:"llm"`
	News struct {
		MaxArticles int `yaml:"max_articles"`
	} `yaml:"news"`
	Risk struct {
		VolatilityHighPct     float64 `yaml:"volatility_high_pct"`
		VolatilityVeryHighPct float64 `yaml:"volatility_very_high_pct"`
		MaxDebtEquity         float64 `yaml:"max_debt_equity"`
	} `yaml:"risk"`
	Signals struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"signals"`
}

func (c *Config) Validate() error {
	if c.Mode != "RULE_BASED" && c.Mode != "LLM" {
		return fmt.Errorf("invalid mode '%s': must be 'RULE_BASED' or 'LLM'", c.Mode)
	}
	if c.DataSource != "MOCK" && c.DataSource != "LIVE" {
		return fmt.Errorf("invalid data_source '%s': must be 'MOCK' or 'LIVE'", c.DataSource)
	}
	if len(c.Universe.Static) == 0 {
		return errors.New("universe.static cannot be empty")
	}
	if c.Analysis.LookbackDays <= 0 {
		return fmt.Errorf("analysis.lookback_days must be positive, got %d", c.Analysis.LookbackDays)
	}
	if c.Analysis.SparseThreshold < 0 || c.Analysis.SparseThreshold > 1 {
		return fmt.Errorf("analysis.sparse_threshold must be between 0-1, got %.2f", c.Analysis.SparseThreshold)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Mode == "" {
		c.Mode = "RULE_BASED"
	}
	if c.DataSource == "" {
		c.DataSource = "MOCK"
	}
	if c.Analysis.LookbackDays == 0 {
		c.Analysis.LookbackDays = 365
	}
	if c.Analysis.MaxConcurrency == 0 {
		c.Analysis.MaxConcurrency = 4
	}
	if c.Analysis.SparseThreshold == 0 {
		c.Analysis.SparseThreshold = 0.4
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache/market"
	}
	if c.Provider.RequestsPerSecond == 0 {
		c.Provider.RequestsPerSecond = 2
	}
	if c.Provider.Burst == 0 {
		c.Provider.Burst = 4
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = 3
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 25
	}
	if c.Risk.VolatilityHighPct == 0 {
		c.Risk.VolatilityHighPct = 3.0
	}
	if c.Risk.VolatilityVeryHighPct == 0 {
		c.Risk.VolatilityVeryHighPct = 5.0
	}
	if c.Risk.MaxDebtEquity == 0 {
		c.Risk.MaxDebtEquity = 2.0
	}
	if c.Signals.Dir == "" {
		c.Signals.Dir = "signals"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
