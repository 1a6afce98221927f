package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"busnode/config"
	"busnode/connector"
	"busnode/engine"
	"busnode/messaging"
	"busnode/monitor"
	"busnode/singleton"
	"busnode/store"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "busnode: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, logLevel string
	var showVersion bool

	flagSet := pflag.NewFlagSet("busnode", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "busnode.yaml", "path to config file")
	flagSet.StringVar(&logLevel, "log-level", "", "override the configured log level")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Println("busnode", Version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "busnode",
		Level:      hclog.LevelFromString(cfg.Log.Level),
		JSONFormat: cfg.Log.JSON,
		Output:     os.Stderr,
	})

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	logger.Info("database open", "driver", cfg.Database.Driver)

	// Redis backs the singleton lease. Without it the config flag decides.
	var leases singleton.LeaseStore
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not available, singleton lease disabled", "error", err)
	} else {
		logger.Info("redis connected", "address", cfg.Redis.Address)
		leases = singleton.NewRedisLease(redisClient)
	}
	cancel()

	// Messaging fabric
	fabric, err := messaging.NewContext(&cfg.Messaging, logger)
	if err != nil {
		db.Close()
		return fmt.Errorf("messaging: %w", err)
	}

	eng := engine.New(engine.Config{
		AppConfig: cfg,
		DB:        db,
		Fabric:    fabric,
		Launcher:  &connector.ExecLauncher{Executable: cfg.Connectors.Executable, Logger: logger},
		Leases:    leases,
		Metrics:   monitor.New(),
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "version", Version)
	if err := eng.Run(ctx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
