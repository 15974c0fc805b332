package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	p := writeConfig(t, `
universe:
  static: [AAPL]
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != "RULE_BASED" {
		t.Errorf("default mode = %q", cfg.Mode)
	}
	if cfg.DataSource != "MOCK" {
		t.Errorf("default data source = %q", cfg.DataSource)
	}
	if cfg.Analysis.LookbackDays != 365 {
		t.Errorf("default lookback = %d", cfg.Analysis.LookbackDays)
	}
	if cfg.Analysis.SparseThreshold != 0.4 {
		t.Errorf("default sparse threshold = %v", cfg.Analysis.SparseThreshold)
	}
	if cfg.Risk.VolatilityHighPct != 3.0 || cfg.Risk.VolatilityVeryHighPct != 5.0 {
		t.Errorf("default volatility thresholds = %v/%v",
			cfg.Risk.VolatilityHighPct, cfg.Risk.VolatilityVeryHighPct)
	}
	if cfg.Signals.Dir != "signals" {
		t.Errorf("default signals dir = %q", cfg.Signals.Dir)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	p := writeConfig(t, `
mode: LLM
data_source: LIVE
universe:
  static: [AAPL, MSFT]
analysis:
  lookback_days: 90
llm:
  provider: OPENAI
  model: gpt-4o-mini
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != "LLM" || cfg.DataSource != "LIVE" {
		t.Errorf("overrides not applied: %s/%s", cfg.Mode, cfg.DataSource)
	}
	if cfg.Analysis.LookbackDays != 90 {
		t.Errorf("lookback = %d", cfg.Analysis.LookbackDays)
	}
	if cfg.LLM.Provider != "OPENAI" {
		t.Errorf("llm provider = %q", cfg.LLM.Provider)
	}
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	p := writeConfig(t, `
mode: YOLO
universe:
  static: [AAPL]
`)
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected validation error for bad mode")
	}
}

func TestLoadConfigRejectsEmptyUniverse(t *testing.T) {
	p := writeConfig(t, `
mode: RULE_BASED
`)
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected validation error for empty universe")
	}
}

func TestValidateSparseThresholdRange(t *testing.T) {
	cfg := &Config{Mode: "RULE_BASED", DataSource: "MOCK"}
	cfg.Universe.Static = []string{"AAPL"}
	cfg.Analysis.LookbackDays = 365
	cfg.Analysis.SparseThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range sparse threshold")
	}
}
