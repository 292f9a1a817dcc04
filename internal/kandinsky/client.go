// Package kandinsky — клиент сервиса генерации изображений. Сервис для нас
// непрозрачен: текстовый запрос и размеры на входе, URL картинки на выходе.
package kandinsky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	defaultAPIURL  = "https://api.kandinsky.ai/generate"
	defaultTimeout = 30 * time.Second

	imageWidth  = 512
	imageHeight = 512
)

// ErrGenerationFailed — сервис не вернул ссылку на изображение
var ErrGenerationFailed = errors.New("не удалось сгенерировать изображение")

// Config — параметры клиента
type Config struct {
	APIKey  string
	APIURL  string // переопределяется в тестах
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Client — клиент Kandinsky
type Client struct {
	http *resty.Client
	url  string
	log  zerolog.Logger
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type generateResponse struct {
	URL string `json:"url"`
}

// NewClient создаёт клиент. Повтор при 5xx и таймауте делает сам resty.
func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(1).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http: httpClient,
		url:  cfg.APIURL,
		log:  cfg.Logger.With().Str("component", "kandinsky").Logger(),
	}
}

// GenerateMealImage генерирует изображение блюда по описанию и возвращает URL
func (c *Client) GenerateMealImage(ctx context.Context, prompt string) (string, error) {
	var result generateResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&generateRequest{Prompt: prompt, Width: imageWidth, Height: imageHeight}).
		SetResult(&result).
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if !resp.IsSuccess() {
		c.log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).
			Msg("ошибка генерации изображения")
		return "", fmt.Errorf("%w: статус %d", ErrGenerationFailed, resp.StatusCode())
	}
	if result.URL == "" {
		return "", fmt.Errorf("%w: пустой url в ответе", ErrGenerationFailed)
	}

	return result.URL, nil
}
