package bot

import (
	"fmt"

	"github.com/pinghoyk/dietbot/pkg/models"
)

// NutritionPrompt — запрос плана питания на день под параметры пользователя.
// Разделы в ответе просим размечать известными маркерами, чтобы их можно
// было вырезать при постобработке.
func NutritionPrompt(p *models.UserProfile) string {
	return fmt.Sprintf("Создай план питания для: вес %.0f кг, рост %.0f см, "+
		"возраст %d лет, цель: %s. Предоставь подробный план на день с калориями. "+
		"Раздели ответ на разделы: Завтрак, Обед, Ужин, Перекус. "+
		"В конце добавь раздел Итого с суммарными калориями и БЖУ.",
		p.Weight, p.Height, p.Age, p.Goal)
}

// MealPrompt — запрос идеи одного блюда под параметры пользователя
func MealPrompt(p *models.UserProfile) string {
	return fmt.Sprintf("Идея для блюда подходящего для: вес %.0f кг, рост %.0f см, "+
		"возраст %d лет, цель: %s. Опиши блюдо, ингредиенты и примерную калорийность.",
		p.Weight, p.Height, p.Age, p.Goal)
}

// AskPrompt — свободный вопрос; анкета, если она есть, добавляется контекстом
func AskPrompt(question string, p *models.UserProfile) string {
	if p == nil {
		return question
	}
	return fmt.Sprintf("%s\n\nКонтекст о спрашивающем: вес %.0f кг, рост %.0f см, "+
		"возраст %d лет, цель: %s.", question, p.Weight, p.Height, p.Age, p.Goal)
}
