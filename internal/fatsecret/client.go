// Package fatsecret — клиент базы продуктов FatSecret: поиск продукта по
// названию и нормализация пищевой ценности первой порции.
package fatsecret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	defaultTokenURL = "https://oauth.fatsecret.com/connect/token"
	defaultAPIURL   = "https://platform.fatsecret.com/rest/server.api"
	defaultTimeout  = 15 * time.Second

	tokenSafetyMargin = 60 * time.Second
)

// Ошибки клиента
var (
	ErrFoodNotFound = errors.New("продукт не найден")
	ErrUnavailable  = errors.New("сервис FatSecret недоступен")
)

// Nutrition — нормализованная пищевая ценность одной порции
type Nutrition struct {
	Name     string
	Calories int
	Protein  float64
	Fats     float64
	Carbs    float64
	Portion  float64 // г
}

// Config — параметры клиента
type Config struct {
	ClientID     string
	ClientSecret string

	TokenURL string // переопределяется в тестах
	APIURL   string // переопределяется в тестах
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Client — клиент FatSecret с кэшем OAuth-токена (client_credentials),
// жизненный цикл токена тот же, что у клиента GigaChat
type Client struct {
	cfg  Config
	http *resty.Client
	log  zerolog.Logger

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NewClient создаёт клиент
func NewClient(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:  cfg,
		http: resty.New().SetTimeout(cfg.Timeout),
		log:  cfg.Logger.With().Str("component", "fatsecret").Logger(),
	}
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpires) {
		return c.accessToken, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
			"scope":      "basic",
		}).
		Post(c.cfg.TokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		c.log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).
			Msg("ошибка получения токена FatSecret")
		return "", fmt.Errorf("%w: токен не выдан, статус %d", ErrUnavailable, resp.StatusCode())
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("неверный JSON ответа на токен: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("пустой access_token в ответе FatSecret")
	}

	c.accessToken = tr.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSafetyMargin)
	return c.accessToken, nil
}

// api выполняет вызов REST-метода FatSecret с токеном
func (c *Client) api(ctx context.Context, params map[string]string) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	params["format"] = "json"

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		Get(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		c.log.Error().Int("status", resp.StatusCode()).Str("method", params["method"]).
			Str("body", resp.String()).Msg("ошибка FatSecret API")
		return nil, fmt.Errorf("%w: статус %d", ErrUnavailable, resp.StatusCode())
	}

	return resp.Body(), nil
}

// searchResponse: при единственном результате food приходит объектом,
// а не массивом, поэтому разбираем через RawMessage
type searchResponse struct {
	Foods struct {
		Food json.RawMessage `json:"food"`
	} `json:"foods"`
}

type foodRef struct {
	FoodID string `json:"food_id"`
	Name   string `json:"food_name"`
}

type foodResponse struct {
	Food struct {
		Name     string `json:"food_name"`
		Servings struct {
			Serving json.RawMessage `json:"serving"`
		} `json:"servings"`
	} `json:"food"`
}

type serving struct {
	Calories     string `json:"calories"`
	Protein      string `json:"protein"`
	Fat          string `json:"fat"`
	Carbohydrate string `json:"carbohydrate"`
	MetricAmount string `json:"metric_serving_amount"`
	MetricUnit   string `json:"metric_serving_unit"`
}

// SearchNutrition ищет продукт по названию и возвращает пищевую ценность
// первой порции первого найденного продукта
func (c *Client) SearchNutrition(ctx context.Context, query string) (*Nutrition, error) {
	body, err := c.api(ctx, map[string]string{
		"method":            "foods.search",
		"search_expression": query,
		"max_results":       "5",
	})
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("неверный JSON foods.search: %w", err)
	}

	refs, err := decodeOneOrMany[foodRef](sr.Foods.Food)
	if err != nil || len(refs) == 0 {
		return nil, ErrFoodNotFound
	}

	return c.foodNutrition(ctx, refs[0].FoodID)
}

// foodNutrition запрашивает детали продукта и нормализует первую порцию
func (c *Client) foodNutrition(ctx context.Context, foodID string) (*Nutrition, error) {
	body, err := c.api(ctx, map[string]string{
		"method":  "food.get",
		"food_id": foodID,
	})
	if err != nil {
		return nil, err
	}

	var fr foodResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("неверный JSON food.get: %w", err)
	}

	servings, err := decodeOneOrMany[serving](fr.Food.Servings.Serving)
	if err != nil || len(servings) == 0 {
		return nil, ErrFoodNotFound
	}

	// Первая порция — обычно 100 г
	s := servings[0]
	n := &Nutrition{
		Name:     fr.Food.Name,
		Calories: int(parseNum(s.Calories)),
		Protein:  parseNum(s.Protein),
		Fats:     parseNum(s.Fat),
		Carbs:    parseNum(s.Carbohydrate),
		Portion:  parseNum(s.MetricAmount),
	}
	if n.Portion <= 0 {
		n.Portion = 100
	}
	if n.Name == "" {
		return nil, ErrFoodNotFound
	}

	return n, nil
}

// decodeOneOrMany разбирает поле, которое бывает и объектом, и массивом
func decodeOneOrMany[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var many []T
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

// parseNum разбирает числовое поле FatSecret (приходит строкой)
func parseNum(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
