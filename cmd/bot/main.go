package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/yourusername/flashcards-srs/internal/config"
	"github.com/yourusername/flashcards-srs/internal/handler"
	"github.com/yourusername/flashcards-srs/internal/repository"
	"github.com/yourusername/flashcards-srs/internal/service"
	"github.com/yourusername/flashcards-srs/pkg/ingestion"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	logger, err := zapConfig.Build()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.S().Info("logger initialized")

	if err := godotenv.Load(); err != nil {
		zap.S().Debug("load .env file", zap.Error(err))
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		zap.S().Error("load config", zap.Error(err))
		os.Exit(1)
	}

	repo, err := repository.NewDB(cfg.Postgres.DSN(), cfg.Postgres.MaxIdle, cfg.Postgres.MaxOpen)
	if err != nil {
		zap.S().Error("connect to PostgreSQL", zap.Error(err), zap.String("host", cfg.Postgres.Host))
		os.Exit(1)
	}
	defer repo.Close()

	if err = repo.Up(cfg.MigrationsDir); err != nil {
		zap.S().Error("run migrations", zap.Error(err))
		os.Exit(1)
	}

	ingest := ingestion.NewClient(cfg.Ingestion.BaseURL, cfg.Ingestion.ClientID, cfg.Ingestion.ClientSecret, cfg.Ingestion.TokenURL)

	svc := service.NewService(repo, ingest)

	bot, err := handler.NewTelegramHandler(cfg.TelegramToken, svc)
	if err != nil {
		zap.S().Error("create telegram handler", zap.Error(err))
		os.Exit(1)
	}

	bot.Start()
}
