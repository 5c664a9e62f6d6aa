package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosik13/AMMs-deepdive/internal/blockchain"
	"github.com/Dosik13/AMMs-deepdive/internal/dex"
	"github.com/Dosik13/AMMs-deepdive/internal/notification"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/aws"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/cache"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/config"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
	"github.com/Dosik13/AMMs-deepdive/internal/router"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("loading configuration...")
	cfg := config.MustLoad("config.yaml")

	// Observability first, everything else logs through it.
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("routerd", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("failed to create metrics: %v", err)
	}

	tracer, err := observability.NewTracerProvider(ctx, "routerd", cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.Enabled)
	if err != nil {
		log.Fatalf("failed to create tracer: %v", err)
	}
	defer tracer.Shutdown(ctx)

	logger.Info("observability setup complete")

	// Layered cache: in-process LRU over Redis.
	redisCache, err := cache.NewRedisCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.LogError(ctx, "failed to create Redis cache", err)
		log.Fatalf("failed to create Redis cache: %v", err)
	}
	defer redisCache.Close()

	memCache := cache.NewMemoryCache(cfg.Cache.L1MaxSize)
	defer memCache.Close()

	layeredCache := cache.NewLayeredCache(memCache, redisCache)

	// Ethereum client pool with background health probes.
	logger.Info("connecting to Ethereum...")
	clientPool, err := blockchain.NewClientPool(blockchain.ClientPoolConfig{
		URLs:          cfg.Ethereum.RPCEndpoints,
		ProbeInterval: cfg.Ethereum.ProbeInterval,
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		logger.LogError(ctx, "failed to create client pool", err)
		log.Fatalf("failed to create client pool: %v", err)
	}
	defer clientPool.Close()

	// On-chain adapters for the Uniswap V3 periphery.
	adapters, err := dex.NewAdapters(ctx, dex.AdaptersConfig{
		Pool:            clientPool,
		PrivateKey:      cfg.Executor.PrivateKey,
		GasLimit:        cfg.Executor.GasLimit,
		Router:          cfg.Contracts.SwapRouterAddress(),
		Quoter:          cfg.Contracts.QuoterAddress(),
		PositionManager: cfg.Contracts.PositionManagerAddress(),
		Cache:           layeredCache,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		logger.LogError(ctx, "failed to create dex adapters", err)
		log.Fatalf("failed to create dex adapters: %v", err)
	}

	// Event sinks: always log, SNS when a topic is configured.
	sinks := []router.EventSink{notification.NewLogSink(logger)}
	if cfg.AWS.SNSTopicARN != "" {
		awsCfg, err := aws.LoadAWSConfig(ctx, aws.Config{
			Region: cfg.AWS.Region,
		})
		if err != nil {
			logger.LogError(ctx, "failed to load AWS config", err)
			log.Fatalf("failed to load AWS config: %v", err)
		}

		snsSink, err := notification.NewSNSSink(notification.SNSSinkConfig{
			Client:   aws.NewSNSClient(aws.SNSClientConfig{AWSConfig: awsCfg, Logger: logger}),
			TopicARN: cfg.AWS.SNSTopicARN,
			Logger:   logger,
		})
		if err != nil {
			logger.LogError(ctx, "failed to create SNS sink", err)
			log.Fatalf("failed to create SNS sink: %v", err)
		}
		sinks = append(sinks, snsSink)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Tokens:           adapters.Tokens,
		Pools:            adapters.Pools,
		Quoter:           adapters.Quoter,
		Router:           adapters.Router,
		Positions:        adapters.Positions,
		Custody:          adapters.CustodyAccount(),
		DefaultTolerance: cfg.Routing.DefaultSlippage(),
		Sinks:            sinks,
		Logger:           logger,
		Metrics:          metrics,
		Tracer:           tracer.Tracer(),
	})
	if err != nil {
		logger.LogError(ctx, "failed to create engine", err)
		log.Fatalf("failed to create engine: %v", err)
	}

	logger.Info("routing engine ready",
		"custody", adapters.CustodyAccount().Hex(),
		"default_slippage_bps", cfg.Routing.DefaultSlippage().Int64(),
	)

	server := newHTTPServer(cfg.HTTP.Port, engine, clientPool, metrics, logger)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(ctx, "HTTP server error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received, gracefully stopping...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError(shutdownCtx, "HTTP shutdown error", err)
	}

	logger.Info("application stopped")
}
