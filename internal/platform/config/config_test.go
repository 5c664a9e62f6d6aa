package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Ethereum: EthereumConfig{
			RPCEndpoints: []string{"https://eth.example.com"},
		},
		Contracts: ContractsConfig{
			SwapRouter:      "0xE592427A0AEce92De3Edee1F18E0157C05861564",
			Quoter:          "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
			PositionManager: "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		},
		Executor: ExecutorConfig{
			PrivateKey: "4c0883a69102937d6231471b5dbb6204fe512961708279e5a7dcf9f8e874c01e",
			GasLimit:   600_000,
		},
		Routing: RoutingConfig{DefaultSlippageBPS: 50},
		Redis:   RedisConfig{Address: "localhost:6379"},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"no rpc endpoints", func(c *Config) { c.Ethereum.RPCEndpoints = nil }, "RPC endpoint"},
		{"zero router address", func(c *Config) { c.Contracts.SwapRouter = "" }, "swap router"},
		{"zero quoter address", func(c *Config) { c.Contracts.Quoter = "" }, "quoter"},
		{"missing private key", func(c *Config) { c.Executor.PrivateKey = "" }, "private key"},
		{"negative slippage", func(c *Config) { c.Routing.DefaultSlippageBPS = -1 }, "slippage"},
		{"slippage above scale", func(c *Config) { c.Routing.DefaultSlippageBPS = 10001 }, "slippage"},
		{"missing redis address", func(c *Config) { c.Redis.Address = "" }, "redis"},
		{"sns without region", func(c *Config) {
			c.AWS.SNSTopicARN = "arn:aws:sns:us-east-1:1:t"
			c.AWS.Region = ""
		}, "region"},
		{"bad log level", func(c *Config) { c.Observability.Logging.Level = "verbose" }, "log level"},
		{"bad log format", func(c *Config) { c.Observability.Logging.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestContractAddressParsing(t *testing.T) {
	cfg := validConfig()
	if cfg.Contracts.SwapRouterAddress().Hex() != "0xE592427A0AEce92De3Edee1F18E0157C05861564" {
		t.Errorf("router address = %s", cfg.Contracts.SwapRouterAddress().Hex())
	}
	if cfg.Routing.DefaultSlippage().Int64() != 50 {
		t.Errorf("default slippage = %d", cfg.Routing.DefaultSlippage().Int64())
	}
}
