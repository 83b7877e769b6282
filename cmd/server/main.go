package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/joeychilson/chatimport/cache"
	"github.com/joeychilson/chatimport/client"
	"github.com/joeychilson/chatimport/logger"
	"github.com/joeychilson/chatimport/server"
)

const (
	defaultAddr       = ":8080"
	defaultConfigFile = "./config.yaml"
	defaultLogLevel   = "info"
)

func main() {
	_ = godotenv.Load()

	addr := getEnv("ADDR", defaultAddr)
	configFile := getEnv("CONFIG_FILE", defaultConfigFile)
	redisURL := getEnv("REDIS_URL", "")
	logLevel := getEnv("LOG_LEVEL", defaultLogLevel)

	log := logger.NewJSON(os.Stderr, logger.ParseLevel(logLevel))
	log.Info("starting chatimport API server", "log_level", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c *client.Client
	var err error
	if _, statErr := os.Stat(configFile); statErr == nil {
		log.Info("loading config from file", "file", configFile)
		c, err = client.NewFromFile(configFile)
	} else {
		log.Info("using default configuration (config file not found)", "checked", configFile)
		c, err = client.New(nil)
	}
	if err != nil {
		log.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	c = c.WithLogger(log)
	defer c.Close()

	// Redis is optional: without it the transcript cache and the rate limit
	// counters are per-instance in-memory.
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		c = c.WithCache(cache.NewRedis(redisClient, cache.Config{}))
		log.Info("redis cache enabled")
	}

	srv, err := server.NewServer(c, log, &server.ServerConfig{RedisURL: redisURL})
	if err != nil {
		log.Error("failed to create server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	if err := srv.StartWithShutdown(ctx, addr); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
