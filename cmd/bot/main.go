package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pinghoyk/dietbot/internal/bot"
	"github.com/pinghoyk/dietbot/internal/config"
	"github.com/pinghoyk/dietbot/internal/database"
	"github.com/pinghoyk/dietbot/internal/fatsecret"
	"github.com/pinghoyk/dietbot/internal/gigachat"
	"github.com/pinghoyk/dietbot/internal/kandinsky"
	"github.com/pinghoyk/dietbot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("dietbot", "info")
		fallback.Fatal().Err(err).
			Msg("не удалось загрузить конфигурацию")
	}

	log := logger.New("dietbot", cfg.LogLevel)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("не удалось открыть базу данных")
	}
	defer db.Close()

	giga := gigachat.NewClient(gigachat.Config{
		ClientID:     cfg.GigaChatClientID,
		ClientSecret: cfg.GigaChatSecret,
		Scope:        cfg.GigaChatScope,
		Timeout:      cfg.RequestTimeout,
		Logger:       log,
	})

	images := kandinsky.NewClient(kandinsky.Config{
		APIKey:  cfg.KandinskyAPIKey,
		Timeout: cfg.RequestTimeout,
		Logger:  log,
	})

	var foods *fatsecret.Client
	if cfg.FoodLogEnabled() {
		foods = fatsecret.NewClient(fatsecret.Config{
			ClientID:     cfg.FatSecretClientID,
			ClientSecret: cfg.FatSecretSecret,
			Timeout:      cfg.RequestTimeout,
			Logger:       log,
		})
	} else {
		log.Warn().Msg("FatSecret не настроен, команда /log отключена")
	}

	b, err := bot.New(cfg.TelegramToken, db, giga, images, foods,
		cfg.RequestTimeout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("не удалось создать бота")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("бот запущен")
	if err := b.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("цикл обработки завершился с ошибкой")
	}
	log.Info().Msg("бот остановлен")
}
