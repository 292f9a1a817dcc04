package models

import (
	"errors"
	"time"
)

// UserProfile представляет анкету пользователя: биометрия и цель
type UserProfile struct {
	UserID int64   // Telegram ID пользователя
	Name   string  // имя
	Height float64 // рост, см
	Weight float64 // вес, кг
	Age    int     // возраст, лет
	Goal   string  // цель (напр., "похудеть на 3 кг")
}

// Ошибки валидации анкеты
var (
	ErrEmptyName     = errors.New("имя не указано")
	ErrInvalidHeight = errors.New("рост должен быть положительным числом")
	ErrInvalidWeight = errors.New("вес должен быть положительным числом")
	ErrInvalidAge    = errors.New("возраст должен быть положительным целым числом")
	ErrEmptyGoal     = errors.New("цель не указана")
)

// Validate проверяет инварианты анкеты: все поля заполнены вместе, числа положительные
func (p *UserProfile) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.Height <= 0 {
		return ErrInvalidHeight
	}
	if p.Weight <= 0 {
		return ErrInvalidWeight
	}
	if p.Age <= 0 {
		return ErrInvalidAge
	}
	if p.Goal == "" {
		return ErrEmptyGoal
	}
	return nil
}

// FoodEntry представляет одну запись дневника питания
type FoodEntry struct {
	ID        int64
	UserID    int64
	FoodName  string
	Calories  int     // ккал
	Protein   float64 // Б, г
	Fats      float64 // Ж, г
	Carbs     float64 // У, г
	Portion   float64 // порция, г (по умолчанию 100)
	CreatedAt time.Time
}

// DefaultPortion — размер порции по умолчанию, г
const DefaultPortion = 100.0
