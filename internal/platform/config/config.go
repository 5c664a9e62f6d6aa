// Package config loads the routing service configuration from a YAML
// file and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/Dosik13/AMMs-deepdive/internal/money"
)

// Config holds all configuration for the routing service.
type Config struct {
	Ethereum      EthereumConfig      `mapstructure:"ethereum"`
	Contracts     ContractsConfig     `mapstructure:"contracts"`
	Executor      ExecutorConfig      `mapstructure:"executor"`
	Routing       RoutingConfig       `mapstructure:"routing"`
	Redis         RedisConfig         `mapstructure:"redis"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	HTTP          HTTPConfig          `mapstructure:"http"`
}

// EthereumConfig holds node connection settings.
type EthereumConfig struct {
	RPCEndpoints  []string      `mapstructure:"rpc_endpoints"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// ContractsConfig holds the periphery contract addresses.
type ContractsConfig struct {
	SwapRouter      string `mapstructure:"swap_router"`
	Quoter          string `mapstructure:"quoter"`
	PositionManager string `mapstructure:"position_manager"`
}

// ExecutorConfig holds the custody account settings.
type ExecutorConfig struct {
	PrivateKey string `mapstructure:"private_key"` // hex, no 0x prefix
	GasLimit   uint64 `mapstructure:"gas_limit"`
}

// RoutingConfig holds engine defaults.
type RoutingConfig struct {
	DefaultSlippageBPS int64 `mapstructure:"default_slippage_bps"`
}

// RedisConfig holds Redis connection settings for the L2 cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AWSConfig holds AWS settings. The SNS sink is enabled only when a
// topic ARN is configured.
type AWSConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	Region      string `mapstructure:"region"`
	SNSTopicARN string `mapstructure:"sns_topic_arn"`
}

// CacheConfig holds caching settings.
type CacheConfig struct {
	L1MaxSize int           `mapstructure:"l1_max_size"`
	L2TTL     time.Duration `mapstructure:"l2_ttl"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TracingConfig holds tracing settings.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Sampler  string `mapstructure:"sampler"` // always, never, ratio
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// SwapRouterAddress returns the parsed swap router address.
func (c *ContractsConfig) SwapRouterAddress() common.Address {
	return common.HexToAddress(c.SwapRouter)
}

// QuoterAddress returns the parsed quoter address.
func (c *ContractsConfig) QuoterAddress() common.Address {
	return common.HexToAddress(c.Quoter)
}

// PositionManagerAddress returns the parsed position manager address.
func (c *ContractsConfig) PositionManagerAddress() common.Address {
	return common.HexToAddress(c.PositionManager)
}

// DefaultSlippage returns the configured default tolerance.
func (r *RoutingConfig) DefaultSlippage() money.BPS {
	return money.NewBPSFromInt(r.DefaultSlippageBPS)
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine when env vars carry the values.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	// Ethereum defaults
	v.SetDefault("ethereum.probe_interval", "30s")

	// Contract defaults: Uniswap V3 periphery on Ethereum mainnet
	v.SetDefault("contracts.swap_router", "0xE592427A0AEce92De3Edee1F18E0157C05861564")
	v.SetDefault("contracts.quoter", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("contracts.position_manager", "0xC36442b4a4522E871399CD717aBDD847Ab11FE88")

	// Executor defaults
	v.SetDefault("executor.gas_limit", 600_000)

	// Routing defaults
	v.SetDefault("routing.default_slippage_bps", 50)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// AWS defaults
	v.SetDefault("aws.region", "us-east-1")

	// Cache defaults
	v.SetDefault("cache.l1_max_size", 1000)
	v.SetDefault("cache.l2_ttl", "60s")

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sampler", "always")

	// HTTP defaults
	v.SetDefault("http.port", 8080)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Ethereum.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}

	if c.Contracts.SwapRouterAddress() == (common.Address{}) {
		return fmt.Errorf("swap router address is required")
	}
	if c.Contracts.QuoterAddress() == (common.Address{}) {
		return fmt.Errorf("quoter address is required")
	}
	if c.Contracts.PositionManagerAddress() == (common.Address{}) {
		return fmt.Errorf("position manager address is required")
	}

	if c.Executor.PrivateKey == "" {
		return fmt.Errorf("executor private key is required")
	}

	if c.Routing.DefaultSlippageBPS < 0 || c.Routing.DefaultSlippageBPS > int64(money.BPSScale) {
		return fmt.Errorf("default slippage must be within [0, %d] bps", money.BPSScale)
	}

	if c.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.AWS.SNSTopicARN != "" && c.AWS.Region == "" {
		return fmt.Errorf("AWS region is required when SNS is configured")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	return nil
}
