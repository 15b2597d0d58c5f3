package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Parser    ParserConfig    `yaml:"parser" envconfig:"PARSER"`
	Valuation ValuationConfig `yaml:"valuation" envconfig:"VALUATION"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// StoreConfig contains persistence configuration, including the bounded
// retry policy for transient write failures.
type StoreConfig struct {
	DatabasePath string        `yaml:"database_path" envconfig:"DATABASE_PATH" default:"data/dealbase.db"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF" default:"250ms"`
}

// ParserConfig carries the rent roll parsing thresholds. These are
// empirically chosen constants, kept named and overridable rather than
// inlined at their call sites.
type ParserConfig struct {
	// HeaderScanRows is how many candidate header rows are tried in a
	// workbook before falling back to row 0.
	HeaderScanRows int `yaml:"header_scan_rows" envconfig:"HEADER_SCAN_ROWS" default:"10"`
	// MinMeaningfulColumns accepts a candidate header row for rent rolls.
	MinMeaningfulColumns int `yaml:"min_meaningful_columns" envconfig:"MIN_MEANINGFUL_COLUMNS" default:"5"`
	// MinMeaningfulColumnsLoose is the lower-confidence variant used for
	// financial-period files.
	MinMeaningfulColumnsLoose int `yaml:"min_meaningful_columns_loose" envconfig:"MIN_MEANINGFUL_COLUMNS_LOOSE" default:"3"`
	// HeaderKeywordRatio is the fraction of a column's values that must
	// look like header keywords before the column flags header-repeat rows.
	HeaderKeywordRatio float64 `yaml:"header_keyword_ratio" envconfig:"HEADER_KEYWORD_RATIO" default:"0.30"`
	// NumericDominanceRatio exempts mostly-numeric columns from the
	// header-repeat check.
	NumericDominanceRatio float64 `yaml:"numeric_dominance_ratio" envconfig:"NUMERIC_DOMINANCE_RATIO" default:"0.80"`
	// TotalsRentMultiple and TotalsRentFloor flag aggregate rows: a rent
	// that is an exact multiple of the former and exceeds the latter.
	TotalsRentMultiple float64 `yaml:"totals_rent_multiple" envconfig:"TOTALS_RENT_MULTIPLE" default:"1000"`
	TotalsRentFloor    float64 `yaml:"totals_rent_floor" envconfig:"TOTALS_RENT_FLOOR" default:"10000"`
	// DuplicateExampleLimit bounds the resolution decisions retained for
	// the parsing summary.
	DuplicateExampleLimit int `yaml:"duplicate_example_limit" envconfig:"DUPLICATE_EXAMPLE_LIMIT" default:"5"`
	// MaxBathrooms bounds plausible bathroom counts; values outside
	// [0, MaxBathrooms] are treated as unparsable.
	MaxBathrooms float64 `yaml:"max_bathrooms" envconfig:"MAX_BATHROOMS" default:"10"`
}

// ValuationConfig carries the default assumptions used when the caller and
// the deal's data supply none, plus the covenant thresholds echoed in every
// KPI vector.
type ValuationConfig struct {
	DefaultCapRate          float64 `yaml:"default_cap_rate" envconfig:"DEFAULT_CAP_RATE" default:"0.055"`
	DefaultLTVRatio         float64 `yaml:"default_ltv_ratio" envconfig:"DEFAULT_LTV_RATIO" default:"0.80"`
	DefaultInterestRate     float64 `yaml:"default_interest_rate" envconfig:"DEFAULT_INTEREST_RATE" default:"0.05"`
	DefaultExitCapRate      float64 `yaml:"default_exit_cap_rate" envconfig:"DEFAULT_EXIT_CAP_RATE" default:"0.055"`
	DefaultHoldPeriodYears  float64 `yaml:"default_hold_period_years" envconfig:"DEFAULT_HOLD_PERIOD_YEARS" default:"5"`
	DefaultVacancyRate      float64 `yaml:"default_vacancy_rate" envconfig:"DEFAULT_VACANCY_RATE" default:"0.05"`
	DefaultMarketRentGrowth float64 `yaml:"default_market_rent_growth" envconfig:"DEFAULT_MARKET_RENT_GROWTH" default:"0.03"`
	MinimumDSCR             float64 `yaml:"minimum_dscr" envconfig:"MINIMUM_DSCR" default:"1.25"`
	MaximumLTV              float64 `yaml:"maximum_ltv" envconfig:"MAXIMUM_LTV" default:"0.80"`
}

// Load loads configuration from environment variables, layered over an
// optional YAML file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DEALBASE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := configFilePath(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge fills env-config zero values from the file config (env wins).
func merge(fileCfg, envCfg Config) Config {
	if envCfg.Server.Port == 0 {
		envCfg.Server.Port = fileCfg.Server.Port
	}
	if envCfg.Store.DatabasePath == "" {
		envCfg.Store.DatabasePath = fileCfg.Store.DatabasePath
	}
	if envCfg.Logging.Level == "" {
		envCfg.Logging.Level = fileCfg.Logging.Level
	}
	return envCfg
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store database path must be set")
	}
	if c.Store.MaxRetries < 1 {
		return fmt.Errorf("store max retries must be at least 1")
	}
	if c.Parser.HeaderScanRows <= 0 {
		return fmt.Errorf("parser header scan rows must be positive")
	}
	if c.Parser.HeaderKeywordRatio <= 0 || c.Parser.HeaderKeywordRatio >= 1 {
		return fmt.Errorf("parser header keyword ratio must be in (0, 1)")
	}
	if c.Parser.NumericDominanceRatio <= 0 || c.Parser.NumericDominanceRatio >= 1 {
		return fmt.Errorf("parser numeric dominance ratio must be in (0, 1)")
	}
	if c.Valuation.DefaultCapRate <= 0 {
		return fmt.Errorf("default cap rate must be positive")
	}
	if c.Valuation.DefaultHoldPeriodYears <= 0 {
		return fmt.Errorf("default hold period must be positive")
	}
	return nil
}

// configFilePath returns the first config file found in common locations.
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the default configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Store: StoreConfig{
			DatabasePath: "data/dealbase.db",
			MaxRetries:   3,
			RetryBackoff: 250 * time.Millisecond,
		},
		Parser:    DefaultParser(),
		Valuation: DefaultValuation(),
	}
}

// DefaultParser returns the parser thresholds observed to work across the
// rent roll corpus.
func DefaultParser() ParserConfig {
	return ParserConfig{
		HeaderScanRows:            10,
		MinMeaningfulColumns:      5,
		MinMeaningfulColumnsLoose: 3,
		HeaderKeywordRatio:        0.30,
		NumericDominanceRatio:     0.80,
		TotalsRentMultiple:        1000,
		TotalsRentFloor:           10000,
		DuplicateExampleLimit:     5,
		MaxBathrooms:              10,
	}
}

// DefaultValuation returns the default valuation assumptions.
func DefaultValuation() ValuationConfig {
	return ValuationConfig{
		DefaultCapRate:          0.055,
		DefaultLTVRatio:         0.80,
		DefaultInterestRate:     0.05,
		DefaultExitCapRate:      0.055,
		DefaultHoldPeriodYears:  5,
		DefaultVacancyRate:      0.05,
		DefaultMarketRentGrowth: 0.03,
		MinimumDSCR:             1.25,
		MaximumLTV:              0.80,
	}
}
