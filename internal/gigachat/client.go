// Package gigachat предоставляет клиент для GigaChat API через OAuth 2.0
// (client_credentials) с кэшированием токена и ограниченным повтором.
package gigachat

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultAPIURL   = "https://gigachat.devices.sberbank.ru/api/v1/chat/completions"

	defaultModel     = "GigaChat-2-Max"
	defaultTimeout   = 30 * time.Second
	defaultRetryWait = 2 * time.Second

	temperature = 0.7
	maxTokens   = 1024

	// Ответ короче этого порога считается неполноценным
	minReplyLen = 20

	// Запас до истечения токена и срок жизни по умолчанию,
	// если /oauth не вернул expires_in
	tokenSafetyMargin = 60 * time.Second
	defaultTokenTTL   = 1800 * time.Second
)

// Ошибки клиента. Транспортные (ErrUnavailable, ErrTimeout) и авторизационные
// (errTokenRejected) сбои допускают один повтор; смысловые (ErrEmptyReply,
// ErrReplyTooShort) и ошибки запроса повтором не лечатся.
var (
	ErrEmptyPrompt   = errors.New("пустой запрос к модели")
	ErrUnavailable   = errors.New("сервис GigaChat недоступен")
	ErrTimeout       = errors.New("превышено время ожидания ответа GigaChat")
	ErrEmptyReply    = errors.New("модель вернула пустой ответ")
	ErrReplyTooShort = errors.New("модель вернула неполный ответ")

	errTokenRejected = errors.New("токен отклонён")
)

// Config — параметры клиента. Пустые поля заполняются значениями по умолчанию.
type Config struct {
	ClientID     string
	ClientSecret string
	Scope        string

	OAuthURL  string // переопределяется в тестах
	APIURL    string // переопределяется в тестах
	Model     string
	Timeout   time.Duration
	RetryWait time.Duration

	Logger zerolog.Logger
}

// Client — клиент GigaChat с кэшем токена.
// Кэш — единственное разделяемое состояние: получение токена идёт под
// мьютексом, параллельные запросы переиспользуют один результат.
type Client struct {
	cfg  Config
	http *resty.Client
	log  zerolog.Logger

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
}

// TokenResponse — ответ /oauth
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // секунды
}

// ChatRequest — запрос к чату
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatMessage — сообщение
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse — ответ модели
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient создаёт клиент с OAuth-данными
func NewClient(cfg Config) *Client {
	if cfg.Scope == "" {
		cfg.Scope = "GIGACHAT_API_PERS"
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = defaultOAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = defaultRetryWait
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		// Сертификаты Сбера не входят в системные корневые
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS12,
		})

	return &Client{
		cfg:  cfg,
		http: httpClient,
		log:  cfg.Logger.With().Str("component", "gigachat").Logger(),
	}
}

// Ask отправляет prompt единственным пользовательским сообщением и возвращает
// текст ответа модели. При устранимом сбое (таймаут, 5xx, отклонённый токен)
// весь вызов, включая получение свежего токена, повторяется один раз.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.log.Warn().Err(lastErr).Msg("повторяю запрос к GigaChat")
			select {
			case <-time.After(c.cfg.RetryWait):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
		}

		reply, err := c.ask(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

// ask — одна попытка: токен + запрос + разбор ответа
func (c *Client) ask(ctx context.Context, prompt string) (string, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", err
	}

	chatReq := ChatRequest{
		Model:       c.cfg.Model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("RqUID", uuid.NewString()).
		SetBody(&chatReq).
		Post(c.cfg.APIURL)
	if err != nil {
		return "", classifyTransport(err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		// Токен истёк или отозван на стороне сервиса — сбрасываем кэш,
		// повтор возьмёт свежий
		c.invalidateToken()
		return "", errTokenRejected
	case resp.StatusCode() >= http.StatusInternalServerError:
		c.log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).
			Msg("ошибка GigaChat API")
		return "", fmt.Errorf("%w: статус %d", ErrUnavailable, resp.StatusCode())
	case !resp.IsSuccess():
		c.log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).
			Msg("запрос отклонён GigaChat API")
		return "", fmt.Errorf("запрос отклонён: статус %d", resp.StatusCode())
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(resp.Body(), &chatResp); err != nil {
		return "", fmt.Errorf("не удалось разобрать ответ: %w", err)
	}

	// Иногда приходит 200 с ошибкой в теле
	if chatResp.Error.Message != "" {
		return "", fmt.Errorf("модель вернула ошибку: %s (type: %s)",
			chatResp.Error.Message, chatResp.Error.Type)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	content := chatResp.Choices[0].Message.Content
	if content == "" {
		return "", ErrEmptyReply
	}
	if len([]rune(content)) < minReplyLen {
		return "", ErrReplyTooShort
	}

	return content, nil
}

// ensureToken возвращает действующий токен, при необходимости получая новый.
// Сбой получения не повторяется внутри — решение о повторе за Ask.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpires) {
		return c.accessToken, nil
	}

	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Basic "+auth).
		SetHeader("Accept", "application/json").
		SetHeader("RqUID", uuid.NewString()).
		SetFormData(map[string]string{"scope": c.cfg.Scope}).
		Post(c.cfg.OAuthURL)
	if err != nil {
		return "", classifyTransport(err)
	}
	if !resp.IsSuccess() {
		c.log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).
			Msg("ошибка получения токена")
		if resp.StatusCode() >= http.StatusInternalServerError {
			return "", fmt.Errorf("%w: /oauth статус %d", ErrUnavailable, resp.StatusCode())
		}
		return "", fmt.Errorf("/oauth отклонил запрос: статус %d", resp.StatusCode())
	}

	var tr TokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("неверный JSON /oauth: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("пустой access_token в ответе /oauth")
	}

	ttl := defaultTokenTTL
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}

	c.accessToken = tr.AccessToken
	c.tokenExpires = time.Now().Add(ttl - tokenSafetyMargin)

	c.log.Info().Dur("ttl", ttl).Msg("получен новый токен GigaChat")
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.tokenExpires = time.Time{}
	c.mu.Unlock()
}

// classifyTransport разделяет таймауты и прочие сетевые сбои
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, errTokenRejected)
}
