// Package config holds the engine's runtime configuration and the
// immutable lookup tables pipelines consult for reference data.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config tunes engine behavior. The zero value is not usable directly;
// pass it through WithDefaults or start from NewConfig.
type Config struct {
	// ParallelThreshold is the minimum row count before table and
	// window operations fan out to the worker pool.
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"`

	// WorkerPoolSize is the goroutine count of the worker pool.
	// Zero selects runtime.NumCPU().
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"`

	// RankTieSeed seeds the RNG used by random-tie ranking. A zero
	// seed makes random-tie output non-reproducible across runs.
	RankTieSeed int64 `json:"rank_tie_seed" yaml:"rank_tie_seed"`
}

const defaultParallelThreshold = 1000

var (
	globalConfig Config
	configMutex  sync.RWMutex
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		ParallelThreshold: defaultParallelThreshold,
		WorkerPoolSize:    0,
		RankTieSeed:       0,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("parallel_threshold must be positive, got %d", c.ParallelThreshold)
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("worker_pool_size must be non-negative, got %d", c.WorkerPoolSize)
	}
	return nil
}

// WithDefaults fills zero numeric settings with their defaults.
func (c Config) WithDefaults() Config {
	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaultParallelThreshold
	}
	return c
}

// SetConfig replaces the global configuration.
func SetConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetConfig returns a copy of the global configuration.
func GetConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromFile loads configuration from a JSON or YAML file.
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}
	return config.WithDefaults(), nil
}
