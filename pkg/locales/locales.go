package locales

import (
	_ "embed"
	"encoding/json"
	"log"
)

//go:embed locales.json
var localesJSON []byte

// Locales содержит все текстовые строки из locales.json
type Locales struct {
	Start     Start     `json:"start"`
	Profile   Profile   `json:"profile"`
	Nutrition Nutrition `json:"nutrition"`
	Meal      Meal      `json:"meal"`
	Ask       Ask       `json:"ask"`
	FoodLog   FoodLog   `json:"food_log"`
	Errors    Errors    `json:"errors"`
	Help      string    `json:"help"`
	Unknown   string    `json:"unknown"`
}

type Start struct {
	AskProfile string `json:"ask_profile"` // приглашение ввести анкету
	Welcome    string `json:"welcome"`     // %s — сводка анкеты
}

type Profile struct {
	Saved       string `json:"saved"`        // %s — цель
	FormatError string `json:"format_error"` // ожидаемый формат + пример
	Missing     string `json:"missing"`
	SaveFailed  string `json:"save_failed"`
	LoadFailed  string `json:"load_failed"`
	Summary     string `json:"summary"` // имя, рост, вес, возраст, цель
}

type Nutrition struct {
	Wait string `json:"wait"`
}

type Meal struct {
	Wait string `json:"wait"`
}

type Ask struct {
	Usage string `json:"usage"`
	Wait  string `json:"wait"`
}

type FoodLog struct {
	Usage    string `json:"usage"`
	NotFound string `json:"not_found"` // %s — запрос
	Saved    string `json:"saved"`     // имя, ккал, Б, Ж, У
	Disabled string `json:"disabled"`
	Empty    string `json:"empty"`
	Header   string `json:"header"`
	Entry    string `json:"entry"`  // имя, ккал, Б, Ж, У
	Totals   string `json:"totals"` // ккал, Б, Ж, У
}

type Errors struct {
	Unavailable string `json:"unavailable"`
	PlanFailed  string `json:"plan_failed"`
	RateLimited string `json:"rate_limited"`
}

var L *Locales

func init() {
	L = &Locales{}
	if err := json.Unmarshal(localesJSON, L); err != nil {
		log.Fatalf("Не удалось распарсить locales.json: %v", err)
	}
}

// Get возвращает указатель на локали
func Get() *Locales {
	return L
}
