// Package config reads and writes ledgerlink.yaml.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ledgerlink-dev/ledgerlink/internal/match"
)

// Config represents the top-level ledgerlink.yaml configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Accounts []BankAccount  `yaml:"accounts,omitempty"`
	Import   ImportConfig   `yaml:"import"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig locates the database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// BankAccount maps a statement feed to an account identifier.
type BankAccount struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	LastFour string `yaml:"last_four"`
	Format   string `yaml:"format"` // statement profile name
}

// ImportConfig holds import defaults.
type ImportConfig struct {
	Encoding       string `yaml:"encoding,omitempty"` // "" = auto-detect
	SkipDuplicates bool   `yaml:"skip_duplicates"`
	UpdateExisting bool   `yaml:"update_existing"`
}

// MatchingConfig holds the scoring tolerances and retrieval bounds.
type MatchingConfig struct {
	CentTolerance       float64 `yaml:"cent_tolerance"`
	NearTolerance       float64 `yaml:"near_tolerance"`
	WideTolerance       float64 `yaml:"wide_tolerance"`
	PercentBand         float64 `yaml:"percent_band"`
	DayWindow           int     `yaml:"day_window"`
	AmountFilterPercent float64 `yaml:"amount_filter_percent"`
	MinScore            int     `yaml:"min_score"`
	MaxSuggestions      int     `yaml:"max_suggestions"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a ledgerlink.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the shipped defaults.
func Default() *Config {
	m := match.DefaultConfig()
	return &Config{
		Storage: StorageConfig{Path: "ledgerlink.db"},
		Import:  ImportConfig{SkipDuplicates: true},
		Matching: MatchingConfig{
			CentTolerance:       m.CentTolerance.InexactFloat64(),
			NearTolerance:       m.NearTolerance.InexactFloat64(),
			WideTolerance:       m.WideTolerance.InexactFloat64(),
			PercentBand:         m.PercentBand.InexactFloat64(),
			DayWindow:           m.DayWindow,
			AmountFilterPercent: m.FilterPercent.InexactFloat64(),
			MinScore:            m.MinScore,
			MaxSuggestions:      m.MaxSuggestions,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// MatchConfig converts the YAML knobs to the engine configuration. Zero
// values fall back to the engine defaults.
func (c *Config) MatchConfig() match.Config {
	m := match.DefaultConfig()
	if c.Matching.CentTolerance > 0 {
		m.CentTolerance = decimal.NewFromFloat(c.Matching.CentTolerance)
	}
	if c.Matching.NearTolerance > 0 {
		m.NearTolerance = decimal.NewFromFloat(c.Matching.NearTolerance)
	}
	if c.Matching.WideTolerance > 0 {
		m.WideTolerance = decimal.NewFromFloat(c.Matching.WideTolerance)
	}
	if c.Matching.PercentBand > 0 {
		m.PercentBand = decimal.NewFromFloat(c.Matching.PercentBand)
	}
	if c.Matching.DayWindow > 0 {
		m.DayWindow = c.Matching.DayWindow
	}
	if c.Matching.AmountFilterPercent > 0 {
		m.FilterPercent = decimal.NewFromFloat(c.Matching.AmountFilterPercent)
	}
	if c.Matching.MinScore > 0 {
		m.MinScore = c.Matching.MinScore
	}
	if c.Matching.MaxSuggestions > 0 {
		m.MaxSuggestions = c.Matching.MaxSuggestions
	}
	return m
}

// AccountByID returns the configured bank account, or nil.
func (c *Config) AccountByID(id string) *BankAccount {
	for i := range c.Accounts {
		if c.Accounts[i].ID == id {
			return &c.Accounts[i]
		}
	}
	return nil
}
