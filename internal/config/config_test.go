package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
)

// TestDefault_Values checks the zero-argument run settings.
func TestDefault_Values(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "fund_returns.xlsx", cfg.Data.FundWorkbook)
	assert.Equal(t, "cached_data", cfg.Fetch.CacheDir)
	assert.Equal(t, 5, cfg.Selection.MaxFactors)
	assert.Equal(t, 3, cfg.Selection.MinFactors)
	assert.Equal(t, 60, cfg.Selection.MinObs)
	assert.Equal(t, 30*time.Second, cfg.Fetch.HTTPTimeout)
	assert.Equal(t, "HFGM", cfg.Live.Symbol)
	require.NoError(t, cfg.Validate())
}

// TestLoad_FileOverridesDefaults checks JSON settings replace defaults while
// untouched fields keep them.
func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"data":{"dir":"/srv/funds"},"selection":{"max_factors":4,"min_factors":2,"min_obs":36}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/funds", cfg.Data.Dir)
	assert.Equal(t, 4, cfg.Selection.MaxFactors)
	assert.Equal(t, 36, cfg.Selection.MinObs)
	assert.Equal(t, "fund_returns.xlsx", cfg.Data.FundWorkbook)
}

// TestLoad_EnvOverridesFile checks environment variables win over the file.
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"output":{"dir":"from_file"}}`), 0644))

	t.Setenv("FA_OUTPUT_DIR", "from_env")
	t.Setenv("FA_OFFLINE", "true")
	t.Setenv("FA_MIN_OBS", "24")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Output.Dir)
	assert.True(t, cfg.Fetch.Offline)
	assert.Equal(t, 24, cfg.Selection.MinObs)
}

// TestLoad_MissingFile checks a named but absent config file is a config
// error, not a silent fallback.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorCategoryConfig, apperrors.CategoryOf(err))
}

// TestValidate_Rejections checks the guard rails.
func TestValidate_Rejections(t *testing.T) {
	cfg := Default()
	cfg.Selection.MinFactors = 9
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Selection.MaxFactors = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fetch.HTTPTimeout = 0
	require.Error(t, cfg.Validate())
}
