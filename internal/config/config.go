package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the simulation service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	EVM        EVMConfig        `mapstructure:"evm"`
	Runtime    RuntimeConfig    `mapstructure:"runtime"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// EVMConfig describes the account-model fork backend.
type EVMConfig struct {
	ForkURL        string        `mapstructure:"fork_url"`
	NativeSymbol   string        `mapstructure:"native_symbol"`
	NativeDecimals uint8         `mapstructure:"native_decimals"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RuntimeConfig describes the runtime-module fork backend.
type RuntimeConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	NativeSymbol   string        `mapstructure:"native_symbol"`
	NativeDecimals uint8         `mapstructure:"native_decimals"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SimulationConfig contains engine-wide simulation limits.
type SimulationConfig struct {
	SimulationTimeout time.Duration `mapstructure:"simulation_timeout"`
	MaxOtherAffected  int           `mapstructure:"max_other_affected"`
	FatalErrorHalt    bool          `mapstructure:"fatal_error_halt"`
}

// MonitoringConfig contains metrics and health configuration.
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPort int    `mapstructure:"metrics_port"`
	LogLevel    string `mapstructure:"log_level"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("SIMULATOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("evm.fork_url", "http://127.0.0.1:8545")
	viper.SetDefault("evm.native_symbol", "ETH")
	viper.SetDefault("evm.native_decimals", 18)
	viper.SetDefault("evm.request_timeout", "10s")

	viper.SetDefault("runtime.endpoint", "ws://127.0.0.1:9944")
	viper.SetDefault("runtime.native_symbol", "UNIT")
	viper.SetDefault("runtime.native_decimals", 12)
	viper.SetDefault("runtime.request_timeout", "10s")

	viper.SetDefault("simulation.simulation_timeout", "15s")
	viper.SetDefault("simulation.max_other_affected", 50)
	viper.SetDefault("simulation.fatal_error_halt", true)

	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_port", 9090)
	viper.SetDefault("monitoring.log_level", "info")
}
