// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the history database and tracker snapshots
	FeedDir  string // Directory the collectors drop market/portfolio/advisory snapshots into
	Port     int
	LogLevel string
	DevMode  bool

	Optimizer OptimizerConfig
	Exposure  ExposureConfig
	Scheduler SchedulerConfig
}

// OptimizerConfig holds portfolio optimization limits
type OptimizerConfig struct {
	MaxRiskScore     float64 // Candidates above this score are filtered out (0-100)
	MaxPerPoolPct    float64 // Max portfolio weight per pool (0-1)
	MaxPerChainPct   float64 // Max summed portfolio weight per chain (0-1)
	MinAllocationUSD float64
	RiskFreeRate     float64 // Percent, e.g. stablecoin lending rate
	MaxPositions     int
}

// ExposureConfig holds portfolio exposure limits
type ExposureConfig struct {
	MaxPerChainPct    float64 // Percent of total exposure
	MaxPerProtocolPct float64
	MaxPerPoolPct     float64
	MaxTotalUSD       float64
	MaxSingleTxUSD    float64
}

// SchedulerConfig holds decision-cycle cadence bounds
type SchedulerConfig struct {
	MinInterval time.Duration
	MaxInterval time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("WARDEN_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		FeedDir:  getEnv("WARDEN_FEED_DIR", filepath.Join(absDataDir, "feed")),
		Port:     getEnvAsInt("WARDEN_PORT", 8090),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Optimizer: OptimizerConfig{
			MaxRiskScore:     getEnvAsFloat("OPTIMIZER_MAX_RISK_SCORE", 60),
			MaxPerPoolPct:    getEnvAsFloat("OPTIMIZER_MAX_PER_POOL_PCT", 0.25),
			MaxPerChainPct:   getEnvAsFloat("OPTIMIZER_MAX_PER_CHAIN_PCT", 0.50),
			MinAllocationUSD: getEnvAsFloat("OPTIMIZER_MIN_ALLOCATION_USD", 100),
			RiskFreeRate:     getEnvAsFloat("OPTIMIZER_RISK_FREE_RATE", 3.0),
			MaxPositions:     getEnvAsInt("OPTIMIZER_MAX_POSITIONS", 10),
		},
		Exposure: ExposureConfig{
			MaxPerChainPct:    getEnvAsFloat("EXPOSURE_MAX_PER_CHAIN_PCT", 50),
			MaxPerProtocolPct: getEnvAsFloat("EXPOSURE_MAX_PER_PROTOCOL_PCT", 30),
			MaxPerPoolPct:     getEnvAsFloat("EXPOSURE_MAX_PER_POOL_PCT", 20),
			MaxTotalUSD:       getEnvAsFloat("EXPOSURE_MAX_TOTAL_USD", 100_000),
			MaxSingleTxUSD:    getEnvAsFloat("EXPOSURE_MAX_SINGLE_TX_USD", 10_000),
		},
		Scheduler: SchedulerConfig{
			MinInterval: time.Duration(getEnvAsInt("CYCLE_MIN_INTERVAL_MINUTES", 5)) * time.Minute,
			MaxInterval: time.Duration(getEnvAsInt("CYCLE_MAX_INTERVAL_MINUTES", 60)) * time.Minute,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.Optimizer.MaxPerPoolPct <= 0 || c.Optimizer.MaxPerPoolPct > 1 {
		return fmt.Errorf("OPTIMIZER_MAX_PER_POOL_PCT must be in (0, 1], got %v", c.Optimizer.MaxPerPoolPct)
	}
	if c.Optimizer.MaxPerChainPct <= 0 || c.Optimizer.MaxPerChainPct > 1 {
		return fmt.Errorf("OPTIMIZER_MAX_PER_CHAIN_PCT must be in (0, 1], got %v", c.Optimizer.MaxPerChainPct)
	}
	if c.Scheduler.MinInterval <= 0 || c.Scheduler.MaxInterval < c.Scheduler.MinInterval {
		return fmt.Errorf("invalid cycle interval bounds: min=%v max=%v", c.Scheduler.MinInterval, c.Scheduler.MaxInterval)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
