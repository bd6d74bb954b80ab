package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Kernel    KernelConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// KernelConfig holds simulated-machine configuration.
type KernelConfig struct {
	// Frames is the simulated physical frame count (4 KiB each).
	Frames int `envconfig:"KERNEL_FRAMES" default:"16384"`
	// HandleCapacity caps each process's handle table.
	HandleCapacity int `envconfig:"KERNEL_HANDLE_CAPACITY" default:"1024"`
	// Quantum is the round-robin time slice.
	Quantum time.Duration `envconfig:"KERNEL_QUANTUM" default:"10ms"`
	// TickInterval is how often the driver advances the virtual clock.
	TickInterval time.Duration `envconfig:"KERNEL_TICK_INTERVAL" default:"1ms"`
	// BootProcess names the root process.
	BootProcess string `envconfig:"KERNEL_BOOT_PROCESS" default:"init"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8000", Host: "0.0.0.0"},
		Kernel: KernelConfig{
			Frames:         16384,
			HandleCapacity: 1024,
			Quantum:        10 * time.Millisecond,
			TickInterval:   time.Millisecond,
			BootProcess:    "init",
		},
		Logging: LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects configurations the kernel cannot run with.
func (c *Config) Validate() error {
	if c.Kernel.Frames <= 0 {
		return fmt.Errorf("invalid config: KERNEL_FRAMES must be positive, got %d", c.Kernel.Frames)
	}
	if c.Kernel.HandleCapacity <= 0 {
		return fmt.Errorf("invalid config: KERNEL_HANDLE_CAPACITY must be positive, got %d", c.Kernel.HandleCapacity)
	}
	if c.Kernel.Quantum <= 0 {
		return fmt.Errorf("invalid config: KERNEL_QUANTUM must be positive, got %s", c.Kernel.Quantum)
	}
	if c.Kernel.TickInterval <= 0 {
		return fmt.Errorf("invalid config: KERNEL_TICK_INTERVAL must be positive, got %s", c.Kernel.TickInterval)
	}
	return nil
}
