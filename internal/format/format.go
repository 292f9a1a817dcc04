// Package format — постобработка текстовых ответов модели: выделение
// размеченных разделов и разбиение длинных сообщений под лимиты Telegram.
package format

import "strings"

// SectionNotFound возвращается, когда маркер раздела в тексте отсутствует.
// Разметка ответа модели — не контракт: маркер может быть опущен или
// изменён, поэтому отсутствие раздела не считается ошибкой.
const SectionNotFound = "раздел не найден"

// Лимиты Telegram на длину текста и подписи к фото
const (
	MaxMessageLen = 4096
	MaxCaptionLen = 1024
)

// PlanMarkers — известные маркеры разделов в плане питания
var PlanMarkers = []string{
	"Завтрак",
	"Обед",
	"Ужин",
	"Перекус",
	"Итого",
}

// ExtractSection возвращает текст после первого вхождения marker до
// следующего известного маркера (или до конца текста), без краевых
// пробелов. Если маркер отсутствует — SectionNotFound.
func ExtractSection(text, marker string) string {
	start := strings.Index(text, marker)
	if start < 0 {
		return SectionNotFound
	}
	start += len(marker)

	end := len(text)
	for _, m := range PlanMarkers {
		if m == marker {
			continue
		}
		if idx := strings.Index(text[start:], m); idx >= 0 && start+idx < end {
			end = start + idx
		}
	}

	section := strings.TrimSpace(text[start:end])
	// После маркера часто идёт двоеточие или звёздочки разметки
	section = strings.TrimLeft(section, ":*")
	return strings.TrimSpace(section)
}

// Chunk разбивает текст на куски не длиннее maxLen рун с сохранением
// порядка: конкатенация кусков воспроизводит исходный текст.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for len(runes) > maxLen {
		chunks = append(chunks, string(runes[:maxLen]))
		runes = runes[maxLen:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// Truncate обрезает текст до maxLen рун (для подписей к фото)
func Truncate(text string, maxLen int) string {
	chunks := Chunk(text, maxLen)
	if len(chunks) == 0 {
		return ""
	}
	return chunks[0]
}
