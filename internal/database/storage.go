package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pinghoyk/dietbot/pkg/models"
)

// ErrProfileNotFound возвращается, когда анкета пользователя ещё не заполнена.
// Это штатная ситуация (новый пользователь), а не сбой хранилища.
var ErrProfileNotFound = errors.New("профиль не найден")

// SaveUserProfile создаёт или целиком перезаписывает анкету пользователя.
// Запись идёт в транзакции с откатом при ошибке, после фиксации выполняется
// контрольное чтение: если запись не читается обратно — операция считается
// неуспешной.
func (db *DB) SaveUserProfile(p *models.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO user_profiles (user_id, name, height, weight, age, goal)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			height = excluded.height,
			weight = excluded.weight,
			age = excluded.age,
			goal = excluded.goal`,
		p.UserID, p.Name, p.Height, p.Weight, p.Age, p.Goal)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("не удалось сохранить профиль: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}

	// Контрольное чтение после записи
	saved, err := db.GetUserProfile(p.UserID)
	if err != nil {
		return fmt.Errorf("профиль записан, но не читается обратно: %w", err)
	}
	if saved.Name != p.Name || saved.Goal != p.Goal {
		return errors.New("профиль записан, но прочитан с другими данными")
	}

	return nil
}

// GetUserProfile возвращает анкету пользователя или ErrProfileNotFound
func (db *DB) GetUserProfile(userID int64) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := db.conn.QueryRow(`
		SELECT user_id, name, height, weight, age, goal
		FROM user_profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Name, &p.Height, &p.Weight, &p.Age, &p.Goal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать профиль: %w", err)
	}
	return p, nil
}

// SaveFoodEntry добавляет запись в дневник питания. Метка времени
// присваивается при создании и больше не меняется.
func (db *DB) SaveFoodEntry(e *models.FoodEntry) error {
	if e.Portion <= 0 {
		e.Portion = models.DefaultPortion
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO food_entries (user_id, food_name, calories, protein, fats, carbs, portion, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.FoodName, e.Calories, e.Protein, e.Fats, e.Carbs, e.Portion, e.CreatedAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("не удалось сохранить запись дневника: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}

// GetTodayFoodEntries возвращает записи дневника за текущий календарный день
// (в локальном времени процесса), от старых к новым.
func (db *DB) GetTodayFoodEntries(userID int64) ([]models.FoodEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, food_name, calories, protein, fats, carbs, portion, created_at
		FROM food_entries
		WHERE user_id = ? AND date(created_at, 'localtime') = date('now', 'localtime')
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать дневник: %w", err)
	}
	defer rows.Close()

	var entries []models.FoodEntry
	for rows.Next() {
		var e models.FoodEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.FoodName, &e.Calories,
			&e.Protein, &e.Fats, &e.Carbs, &e.Portion, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("не удалось прочитать запись дневника: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода записей дневника: %w", err)
	}

	return entries, nil
}
