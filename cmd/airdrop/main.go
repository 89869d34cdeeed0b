// Package main runs one airdrop calculation: scan the configured pools,
// aggregate per-address volume and export both distribution schedules.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/berachain-tools/beradrop/internal/adapters/outbound/file"
	"github.com/berachain-tools/beradrop/internal/adapters/outbound/postgres"
	"github.com/berachain-tools/beradrop/internal/adapters/outbound/redis"
	"github.com/berachain-tools/beradrop/internal/adapters/outbound/rpc"
	"github.com/berachain-tools/beradrop/internal/domain/entity"
	"github.com/berachain-tools/beradrop/internal/pkg/env"
	"github.com/berachain-tools/beradrop/internal/pkg/retry"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
	"github.com/berachain-tools/beradrop/internal/services/airdrop"
	"github.com/berachain-tools/beradrop/internal/services/scanner"
)

// defaultPools is the NFT-AMM pool set the airdrop was designed around.
// Overridable via the POOLS environment variable as a comma-separated
// list of name:address:collection triples.
const defaultPools = "YEETARD:0xe9171252d2EEc5BA1eefB6e2FEf62BC32c061AFA:YEETARD," +
	"BULLA_1:0x9c32e283aad3cB32832096873aa94994B0d9386C:BULLA," +
	"BULLA_2:0xaAf5DEFf621B743f25356F7692c171dFafaeF9dC:BULLA," +
	"BULLA_3:0x6DC89967820563cE095696a915237128e146965E:BULLA," +
	"BABY_BERA:0x304F9c77C303Eb9445f81Ba6De3d0d516372Ea97:BABY_BERA"

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	rpcURL := env.Get("RPC_URL", "")
	if rpcURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}

	pools, err := parsePools(env.Get("POOLS", defaultPools))
	if err != nil {
		return err
	}

	totalSupply, err := decimal.NewFromString(env.Get("TOTAL_SUPPLY", "34000"))
	if err != nil {
		return fmt.Errorf("invalid TOTAL_SUPPLY: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, cancelling run", "signal", sig)
		cancel()
	}()

	// Chain access
	clientConfig := rpc.ClientConfigDefaults()
	clientConfig.URL = rpcURL
	clientConfig.Timeout = env.GetDuration("RPC_TIMEOUT", clientConfig.Timeout)
	clientConfig.RateLimitPerSec = float64(env.GetInt("RPC_RATE_LIMIT", int(clientConfig.RateLimitPerSec)))
	clientConfig.Retry = retryConfigFromEnv(clientConfig.Retry)
	clientConfig.Logger = logger
	client, err := rpc.NewClient(clientConfig)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}

	// Sender cache is optional; without Redis every transaction sender
	// is fetched from the chain.
	var senderCache outbound.SenderCache
	if addr := env.Get("REDIS_ADDR", ""); addr != "" {
		cacheConfig := redis.ConfigDefaults()
		cacheConfig.Addr = addr
		cacheConfig.Password = env.Get("REDIS_PASSWORD", "")
		cache, err := redis.NewSenderCache(cacheConfig, logger)
		if err != nil {
			return fmt.Errorf("failed to create sender cache: %w", err)
		}
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach Redis at %s: %w", addr, err)
		}
		senderCache = cache
		logger.Info("sender caching enabled", "addr", addr)
	}

	decoder, err := scanner.NewDecoder(client, senderCache, logger)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	scannerConfig := scanner.ConfigDefaults()
	scannerConfig.ChunkSize = int64(env.GetInt("CHUNK_SIZE", int(scannerConfig.ChunkSize)))
	scannerConfig.Retry = retryConfigFromEnv(scannerConfig.Retry)
	scannerConfig.Logger = logger
	sc, err := scanner.New(client, decoder, scannerConfig)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	// Persistence is optional; without a database the run only writes
	// the report files.
	var store outbound.AllocationStore
	if dbURL := env.Get("DATABASE_URL", ""); dbURL != "" {
		pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(dbURL))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pool.Close()

		allocationStore, err := postgres.NewAllocationStore(pool, logger)
		if err != nil {
			return fmt.Errorf("failed to create allocation store: %w", err)
		}
		if err := allocationStore.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		store = allocationStore
		logger.Info("run persistence enabled")
	}

	writers, err := buildWriters(logger)
	if err != nil {
		return err
	}

	service, err := airdrop.New(sc, client, store, writers, airdrop.Config{
		Pools:       pools,
		TotalSupply: totalSupply,
		FromBlock:   env.GetInt64("FROM_BLOCK", 0),
		ToBlock:     env.GetInt64("TO_BLOCK", -1),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create airdrop service: %w", err)
	}

	report, err := service.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("airdrop calculation finished",
		"addresses", report.Summary.UniqueAddresses,
		"events", report.Summary.TotalEvents,
		"undistributed", report.Summary.UndistributedColl)
	return nil
}

// retryConfigFromEnv overlays the RETRY_* environment knobs onto base,
// keeping base's values for anything unset.
func retryConfigFromEnv(base retry.Config) retry.Config {
	base.MaxRetries = env.GetInt("RETRY_MAX_ATTEMPTS", base.MaxRetries)
	base.InitialBackoff = env.GetDuration("RETRY_INITIAL_BACKOFF", base.InitialBackoff)
	base.MaxBackoff = env.GetDuration("RETRY_MAX_BACKOFF", base.MaxBackoff)
	return base
}

// parsePools parses a comma-separated list of name:address:collection
// triples into a PoolSet.
func parsePools(spec string) (*entity.PoolSet, error) {
	var pools []entity.Pool
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid pool spec %q, want name:address:collection", part)
		}
		pool, err := entity.NewPool(fields[0], fields[1], fields[2])
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return entity.NewPoolSet(pools)
}

func buildWriters(logger *slog.Logger) ([]outbound.ReportWriter, error) {
	var writers []outbound.ReportWriter

	jsonWriter, err := file.NewJSONWriter(env.Get("OUTPUT_JSON", "bera_airdrop_distributions.json"), logger)
	if err != nil {
		return nil, err
	}
	writers = append(writers, jsonWriter)

	collectionCSV, err := file.NewCSVWriter(
		env.Get("OUTPUT_COLLECTION_CSV", "bera_airdrop_collection_based.csv"),
		entity.MethodByCollection, logger)
	if err != nil {
		return nil, err
	}
	writers = append(writers, collectionCSV)

	volumeCSV, err := file.NewCSVWriter(
		env.Get("OUTPUT_VOLUME_CSV", "bera_airdrop_volume_based.csv"),
		entity.MethodByTotalVolume, logger)
	if err != nil {
		return nil, err
	}
	writers = append(writers, volumeCSV)

	return writers, nil
}
