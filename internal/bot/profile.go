package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pinghoyk/dietbot/pkg/models"
)

// profileFields — количество полей в анкете: Имя/Рост/Вес/Возраст/Цель
const profileFields = 5

// IsProfileInput определяет, похоже ли сообщение на анкету: ровно пять
// непустых полей через косую черту. Только форма, числа здесь не проверяются.
func IsProfileInput(text string) bool {
	parts := strings.Split(text, "/")
	if len(parts) != profileFields {
		return false
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return false
		}
	}
	return true
}

// ParseProfileInput разбирает анкету из текста. Поля обрезаются по краям,
// рост и вес — положительные числа, возраст — положительное целое.
// UserID заполняет вызывающая сторона.
func ParseProfileInput(text string) (*models.UserProfile, error) {
	parts := strings.Split(text, "/")
	if len(parts) != profileFields {
		return nil, fmt.Errorf("ожидается %d полей, получено %d", profileFields, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	height, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidHeight, parts[1])
	}
	weight, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidWeight, parts[2])
	}
	age, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidAge, parts[3])
	}

	p := &models.UserProfile{
		Name:   parts[0],
		Height: height,
		Weight: weight,
		Age:    age,
		Goal:   parts[4],
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
