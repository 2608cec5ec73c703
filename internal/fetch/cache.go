// Package fetch retrieves external factor series (FRED macro proxies, AQR
// multi-asset factors, Yahoo price histories) and caches the transformed
// monthly tables so a run without network access can still complete.
package fetch

import (
	"os"
	"path/filepath"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// Cache is an explicit handle on one cache directory. Each source persists
// as a single CSV keyed by its name; there is no process-wide cache state.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed and returns a handle.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryData, "cache", dir, "cannot create cache directory")
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".csv")
}

// Has reports whether a cache file exists for the key.
func (c *Cache) Has(key string) bool {
	_, err := os.Stat(c.path(key))
	return err == nil
}

// Write persists a factor table under the key.
func (c *Cache) Write(key string, tab *timeseries.FactorTable) error {
	f, err := os.Create(c.path(key))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCategoryData, "cache", key, "cannot write cache file")
	}
	defer f.Close()
	if err := timeseries.WriteCSV(f, tab); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCategoryData, "cache", key, "cache encode failed")
	}
	return nil
}

// Read loads a previously cached factor table. Cached values come back
// exactly as written.
func (c *Cache) Read(key string) (*timeseries.FactorTable, error) {
	f, err := os.Open(c.path(key))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryData, "cache", key, "no cache available")
	}
	defer f.Close()

	tab, err := timeseries.ReadCSV(f)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryData, "cache", key, "corrupt cache file")
	}
	return tab, nil
}
