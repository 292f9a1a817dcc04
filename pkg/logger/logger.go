// Package logger предоставляет настроенный zerolog-логгер.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New возвращает логгер приложения с именем сервиса и меткой времени
func New(serviceName, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
