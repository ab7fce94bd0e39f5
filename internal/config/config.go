package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Batch    BatchConfig
	Executor ExecutorConfig
	Planner  PlannerConfig
	Log      LogConfig
}

// BatchConfig carries the store's per-request item ceilings. These are
// properties of the store (DynamoDB: 25-item writes, 100-key reads), not
// of this engine; the chunker consults them as configuration.
type BatchConfig struct {
	WriteSize int // Max items per BatchWriteItem request
	ReadSize  int // Max keys per BatchGetItem request
}

type ExecutorConfig struct {
	MaxConcurrentChunks int           // Worker pool bound for sibling chunk calls
	MaxRetries          int           // Retry budget for unprocessed/throttled items
	InitialBackoff      time.Duration // First backoff delay
	MaxBackoff          time.Duration // Backoff cap
	UnavailableAttempts int           // Attempts before a store outage is fatal
}

type PlannerConfig struct {
	PlanCacheSize int // Compiled plan LRU size (0 = caching disabled)
}

type LogConfig struct {
	Level string // debug | info | warn | error
}

func DefaultConfig() *Config {
	return &Config{
		Batch: BatchConfig{
			WriteSize: 25,
			ReadSize:  100,
		},
		Executor: ExecutorConfig{
			MaxConcurrentChunks: 8,
			MaxRetries:          5,
			InitialBackoff:      10 * time.Millisecond,
			MaxBackoff:          time.Second,
			UnavailableAttempts: 2,
		},
		Planner: PlannerConfig{
			PlanCacheSize: 256,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and
// DYNAPLAN_-prefixed environment variables (e.g. DYNAPLAN_BATCH_WRITESIZE).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]

		if strings.HasPrefix(key, "DYNAPLAN_") {
			// DYNAPLAN_EXECUTOR_MAXRETRIES -> executor.maxretries
			propKey := strings.TrimPrefix(key, "DYNAPLAN_")
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			v.Set(propKey, value)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the chunker and executor cannot honor.
func (c *Config) Validate() error {
	if c.Batch.WriteSize <= 0 {
		return fmt.Errorf("batch.writesize must be positive, got %d", c.Batch.WriteSize)
	}
	if c.Batch.ReadSize <= 0 {
		return fmt.Errorf("batch.readsize must be positive, got %d", c.Batch.ReadSize)
	}
	if c.Executor.MaxConcurrentChunks <= 0 {
		return fmt.Errorf("executor.maxconcurrentchunks must be positive, got %d", c.Executor.MaxConcurrentChunks)
	}
	if c.Executor.MaxRetries < 0 {
		return fmt.Errorf("executor.maxretries must not be negative, got %d", c.Executor.MaxRetries)
	}
	if c.Executor.UnavailableAttempts <= 0 {
		return fmt.Errorf("executor.unavailableattempts must be positive, got %d", c.Executor.UnavailableAttempts)
	}
	return nil
}
