package main

import (
	"flag"
	"log"

	"discord-moderation-bot/internal/bot"
	"discord-moderation-bot/internal/cache"
	"discord-moderation-bot/internal/config"
	"discord-moderation-bot/internal/moderation"
	"discord-moderation-bot/internal/redis"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	wordlists, err := config.LoadWordlists(cfg.WordlistsFile)
	if err != nil {
		logger.Fatal("failed to load wordlists", zap.Error(err))
	}

	// Redis is an optional L2 for the lookup cache; everything runs without it.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.New(cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	lookup, err := cache.New(rdb, cache.Config{})
	if err != nil {
		logger.Fatal("failed to create lookup cache", zap.Error(err))
	}
	defer lookup.Close()

	metrics := moderation.NewMetrics(prometheus.DefaultRegisterer)
	classifier := moderation.NewClassifier(cfg.ClassifierURL(), 0)

	b, err := bot.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create bot", zap.Error(err))
	}

	platform := bot.NewDiscordPlatform(b.Session)
	engine := moderation.NewEngine(cfg.EngineSettings(), wordlists, platform,
		classifier, lookup, metrics, logger)
	b.SetEngine(engine)

	if err := b.Start(); err != nil {
		logger.Fatal("bot stopped", zap.Error(err))
	}
}
