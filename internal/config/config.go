package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config — конфигурация бота, собирается из переменных окружения DIETBOT_*
type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_TOKEN" required:"true"`

	// GigaChat: авторизационные данные OAuth (client_credentials)
	GigaChatClientID string `envconfig:"GIGACHAT_CLIENT_ID" required:"true"`
	GigaChatSecret   string `envconfig:"GIGACHAT_SECRET" required:"true"`
	GigaChatScope    string `envconfig:"GIGACHAT_SCOPE" default:"GIGACHAT_API_PERS"`

	// Kandinsky: генерация изображений блюд
	KandinskyAPIKey string `envconfig:"KANDINSKY_API_KEY" required:"true"`

	// FatSecret: база продуктов для дневника питания.
	// Пустые значения отключают команду /log, бот при этом работает.
	FatSecretClientID string `envconfig:"FATSECRET_CLIENT_ID"`
	FatSecretSecret   string `envconfig:"FATSECRET_SECRET"`

	DatabasePath   string        `envconfig:"DATABASE_PATH" default:"dietbot.db"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load читает .env (если есть) и собирает конфигурацию.
// Отсутствие обязательной переменной — фатальная ошибка запуска.
func Load() (*Config, error) {
	// .env нужен только для локального запуска, в бою переменные заданы снаружи
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DIETBOT", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	return &cfg, nil
}

// FoodLogEnabled сообщает, настроен ли доступ к базе продуктов
func (c *Config) FoodLogEnabled() bool {
	return c.FatSecretClientID != "" && c.FatSecretSecret != ""
}
