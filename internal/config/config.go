// Package config resolves run settings from defaults, an optional JSON file
// and environment variables, in that order of increasing precedence. Flags
// parsed by the binary override all three.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
)

type Config struct {
	Data struct {
		Dir          string `json:"dir"`
		FundWorkbook string `json:"fund_workbook"`
		FF5File      string `json:"ff5_file"`
		ThemeCSV     string `json:"theme_csv"`
	} `json:"data"`

	Output struct {
		Dir         string `json:"dir"`
		ConsoleOnly bool   `json:"console_only"`
	} `json:"output"`

	Fetch struct {
		CacheDir    string        `json:"cache_dir"`
		StartDate   string        `json:"start_date"`
		HTTPTimeout time.Duration `json:"-"`
		Offline     bool          `json:"offline"`
	} `json:"fetch"`

	Selection struct {
		MaxFactors int `json:"max_factors"`
		MinFactors int `json:"min_factors"`
		MinObs     int `json:"min_obs"`
	} `json:"selection"`

	Live struct {
		Symbol string `json:"symbol"`
		From   string `json:"from"`
	} `json:"live"`
}

// Default returns the settings a bare `factor-analysis` run uses.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Dir = "data"
	cfg.Data.FundWorkbook = "fund_returns.xlsx"
	cfg.Data.FF5File = "ff5_daily.parquet"
	cfg.Data.ThemeCSV = "theme_factors.csv"
	cfg.Output.Dir = "output_data"
	cfg.Fetch.CacheDir = "cached_data"
	cfg.Fetch.StartDate = "2010-01"
	cfg.Fetch.HTTPTimeout = 30 * time.Second
	cfg.Selection.MaxFactors = 5
	cfg.Selection.MinFactors = 3
	cfg.Selection.MinObs = 60
	cfg.Live.Symbol = "HFGM"
	cfg.Live.From = "2022-01"
	return cfg
}

// Load builds the config: defaults, then the JSON file at path (if any),
// then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCategoryConfig, "config", path, "cannot read config file")
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCategoryConfig, "config", path, "invalid config JSON")
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Data.Dir = getEnv("FA_DATA_DIR", c.Data.Dir)
	c.Data.FundWorkbook = getEnv("FA_FUND_WORKBOOK", c.Data.FundWorkbook)
	c.Data.FF5File = getEnv("FA_FF5_FILE", c.Data.FF5File)
	c.Data.ThemeCSV = getEnv("FA_THEME_CSV", c.Data.ThemeCSV)
	c.Output.Dir = getEnv("FA_OUTPUT_DIR", c.Output.Dir)
	c.Output.ConsoleOnly = getEnvBool("FA_CONSOLE_ONLY", c.Output.ConsoleOnly)
	c.Fetch.CacheDir = getEnv("FA_CACHE_DIR", c.Fetch.CacheDir)
	c.Fetch.StartDate = getEnv("FA_START_DATE", c.Fetch.StartDate)
	c.Fetch.HTTPTimeout = getEnvDuration("FA_HTTP_TIMEOUT", c.Fetch.HTTPTimeout)
	c.Fetch.Offline = getEnvBool("FA_OFFLINE", c.Fetch.Offline)
	c.Selection.MaxFactors = getEnvInt("FA_MAX_FACTORS", c.Selection.MaxFactors)
	c.Selection.MinFactors = getEnvInt("FA_MIN_FACTORS", c.Selection.MinFactors)
	c.Selection.MinObs = getEnvInt("FA_MIN_OBS", c.Selection.MinObs)
	c.Live.Symbol = getEnv("FA_LIVE_SYMBOL", c.Live.Symbol)
	c.Live.From = getEnv("FA_LIVE_FROM", c.Live.From)
}

// Validate rejects settings no run can proceed with.
func (c *Config) Validate() error {
	if c.Selection.MaxFactors <= 0 {
		return apperrors.New(apperrors.ErrorCategoryConfig, "config", "selection.max_factors",
			"must be positive")
	}
	if c.Selection.MinFactors > c.Selection.MaxFactors {
		return apperrors.New(apperrors.ErrorCategoryConfig, "config", "selection.min_factors",
			"cannot exceed selection.max_factors")
	}
	if c.Selection.MinObs < 0 {
		return apperrors.New(apperrors.ErrorCategoryConfig, "config", "selection.min_obs",
			"cannot be negative")
	}
	if c.Fetch.HTTPTimeout <= 0 {
		return apperrors.New(apperrors.ErrorCategoryConfig, "config", "fetch.http_timeout",
			"must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
