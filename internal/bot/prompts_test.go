package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pinghoyk/dietbot/pkg/models"
)

var testProfile = &models.UserProfile{
	UserID: 1,
	Name:   "Анна",
	Height: 170,
	Weight: 60,
	Age:    28,
	Goal:   "похудеть",
}

func TestNutritionPrompt(t *testing.T) {
	prompt := NutritionPrompt(testProfile)
	assert.Contains(t, prompt, "вес 60 кг")
	assert.Contains(t, prompt, "рост 170 см")
	assert.Contains(t, prompt, "возраст 28 лет")
	assert.Contains(t, prompt, "цель: похудеть")
	// Маркеры разделов, которые потом вырезает постобработка
	assert.Contains(t, prompt, "Завтрак")
	assert.Contains(t, prompt, "Итого")
}

func TestMealPrompt(t *testing.T) {
	prompt := MealPrompt(testProfile)
	assert.Contains(t, prompt, "вес 60 кг")
	assert.Contains(t, prompt, "цель: похудеть")
}

func TestAskPrompt(t *testing.T) {
	// Без анкеты вопрос уходит как есть
	assert.Equal(t, "сколько пить воды?", AskPrompt("сколько пить воды?", nil))

	prompt := AskPrompt("сколько пить воды?", testProfile)
	assert.Contains(t, prompt, "сколько пить воды?")
	assert.Contains(t, prompt, "вес 60 кг")
}
