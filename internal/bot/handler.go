package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/pinghoyk/dietbot/internal/database"
	"github.com/pinghoyk/dietbot/internal/fatsecret"
	"github.com/pinghoyk/dietbot/internal/format"
	"github.com/pinghoyk/dietbot/internal/gigachat"
	"github.com/pinghoyk/dietbot/internal/kandinsky"
	"github.com/pinghoyk/dietbot/pkg/locales"
	"github.com/pinghoyk/dietbot/pkg/models"
)

// Bot представляет Telegram бота
type Bot struct {
	api     *tgbotapi.BotAPI
	db      *database.DB
	giga    *gigachat.Client
	images  *kandinsky.Client
	foods   *fatsecret.Client // nil, если база продуктов не настроена
	limiter *userRateLimiter
	timeout time.Duration
	log     zerolog.Logger
}

// New создает нового бота. foods может быть nil — тогда команды дневника
// отвечают, что функция не настроена.
func New(token string, db *database.DB, giga *gigachat.Client,
	images *kandinsky.Client, foods *fatsecret.Client,
	timeout time.Duration, log zerolog.Logger) (*Bot, error) {

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания бота: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("бот авторизован")

	return &Bot{
		api:     api,
		db:      db,
		giga:    giga,
		images:  images,
		foods:   foods,
		limiter: newUserRateLimiter(20*time.Second, 2),
		timeout: timeout,
		log:     log.With().Str("component", "bot").Logger(),
	}, nil
}

// Start запускает обработку обновлений до отмены контекста
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				go b.handleMessage(update.Message)
			}
		}
	}
}

// handleMessage разбирает входящее сообщение и выбирает обработчик.
// Любая паника обработчика гасится здесь: одно сообщение не должно
// останавливать цикл обновлений.
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Int64("user_id", userID).Interface("panic", r).
				Msg("паника в обработчике сообщения")
			b.reply(chatID, locales.Get().Errors.Unavailable)
		}
	}()

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(chatID, userID)
		case "profile":
			b.handleShowProfile(chatID, userID)
		case "nutrition":
			b.handleNutrition(chatID, userID)
		case "generate_meal":
			b.handleGenerateMeal(chatID, userID)
		case "ask":
			b.handleAsk(chatID, userID, msg.CommandArguments())
		case "log":
			b.handleLogFood(chatID, userID, msg.CommandArguments())
		case "today":
			b.handleToday(chatID, userID)
		case "help":
			b.reply(chatID, locales.Get().Help)
		default:
			b.handleFallback(chatID, userID)
		}
		return
	}

	if IsProfileInput(msg.Text) {
		b.handleProfileSubmission(chatID, userID, msg.Text)
		return
	}

	b.handleFallback(chatID, userID)
}

// handleStart приветствует: новому пользователю — формат анкеты,
// вернувшемуся — его профиль и список команд
func (b *Bot) handleStart(chatID, userID int64) {
	l := locales.Get()

	profile, err := b.db.GetUserProfile(userID)
	if errors.Is(err, database.ErrProfileNotFound) {
		b.reply(chatID, l.Start.AskProfile)
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Str("op", "start").
			Msg("не удалось прочитать профиль")
		b.reply(chatID, l.Profile.LoadFailed)
		return
	}

	b.reply(chatID, fmt.Sprintf(l.Start.Welcome, profileSummary(profile)))
}

// handleShowProfile показывает сохранённую анкету
func (b *Bot) handleShowProfile(chatID, userID int64) {
	profile := b.requireProfile(chatID, userID, "profile")
	if profile == nil {
		return
	}
	b.reply(chatID, profileSummary(profile))
}

// handleProfileSubmission разбирает и сохраняет анкету.
// Ошибка формата — штатный случай, пользователю уходит формат с примером.
func (b *Bot) handleProfileSubmission(chatID, userID int64, text string) {
	l := locales.Get()

	profile, err := ParseProfileInput(text)
	if err != nil {
		b.log.Debug().Err(err).Int64("user_id", userID).Msg("анкета не прошла валидацию")
		b.reply(chatID, l.Profile.FormatError)
		return
	}
	profile.UserID = userID

	if err := b.db.SaveUserProfile(profile); err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Str("op", "save_profile").
			Msg("не удалось сохранить профиль")
		b.reply(chatID, l.Profile.SaveFailed)
		return
	}

	b.reply(chatID, fmt.Sprintf(l.Profile.Saved, profile.Goal))
}

// handleNutrition строит план питания на день
func (b *Bot) handleNutrition(chatID, userID int64) {
	l := locales.Get()

	profile := b.requireProfile(chatID, userID, "nutrition")
	if profile == nil {
		return
	}
	if !b.limiter.Allow(userID) {
		b.reply(chatID, l.Errors.RateLimited)
		return
	}

	waitMsg, err := b.send(tgbotapi.NewMessage(chatID, l.Nutrition.Wait))
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	plan, err := b.giga.Ask(ctx, NutritionPrompt(profile))
	if err != nil {
		b.replyAskError(chatID, userID, "nutrition", waitMsg.MessageID, err)
		return
	}

	b.editThenReply(chatID, waitMsg.MessageID, plan)
}

// handleGenerateMeal придумывает блюдо и присылает его картинку с описанием
func (b *Bot) handleGenerateMeal(chatID, userID int64) {
	l := locales.Get()

	profile := b.requireProfile(chatID, userID, "generate_meal")
	if profile == nil {
		return
	}
	if !b.limiter.Allow(userID) {
		b.reply(chatID, l.Errors.RateLimited)
		return
	}

	waitMsg, err := b.send(tgbotapi.NewMessage(chatID, l.Meal.Wait))
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	description, err := b.giga.Ask(ctx, MealPrompt(profile))
	if err != nil {
		b.replyAskError(chatID, userID, "generate_meal", waitMsg.MessageID, err)
		return
	}

	imageURL, err := b.images.GenerateMealImage(ctx, description)
	if err != nil {
		// Картинка не получилась — описание блюда всё равно полезно
		b.log.Error().Err(err).Int64("user_id", userID).Str("op", "generate_meal").
			Msg("не удалось сгенерировать изображение")
		b.editThenReply(chatID, waitMsg.MessageID, description)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(imageURL))
	photo.Caption = format.Truncate(description, format.MaxCaptionLen)
	if _, err := b.send(photo); err != nil {
		b.editThenReply(chatID, waitMsg.MessageID, description)
		return
	}

	b.api.Request(tgbotapi.NewDeleteMessage(chatID, waitMsg.MessageID))
}

// handleAsk отвечает на свободный вопрос; анкета не обязательна
func (b *Bot) handleAsk(chatID, userID int64, question string) {
	l := locales.Get()

	question = strings.TrimSpace(question)
	if question == "" {
		b.reply(chatID, l.Ask.Usage)
		return
	}
	if !b.limiter.Allow(userID) {
		b.reply(chatID, l.Errors.RateLimited)
		return
	}

	// Профиль — только контекст, его отсутствие не мешает спросить
	profile, err := b.db.GetUserProfile(userID)
	if err != nil {
		profile = nil
	}

	waitMsg, err := b.send(tgbotapi.NewMessage(chatID, l.Ask.Wait))
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	answer, err := b.giga.Ask(ctx, AskPrompt(question, profile))
	if err != nil {
		b.replyAskError(chatID, userID, "ask", waitMsg.MessageID, err)
		return
	}

	b.editThenReply(chatID, waitMsg.MessageID, answer)
}

// handleLogFood ищет продукт в базе и добавляет запись в дневник
func (b *Bot) handleLogFood(chatID, userID int64, query string) {
	l := locales.Get()

	if b.foods == nil {
		b.reply(chatID, l.FoodLog.Disabled)
		return
	}

	query = strings.TrimSpace(query)
	if query == "" {
		b.reply(chatID, l.FoodLog.Usage)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	n, err := b.foods.SearchNutrition(ctx, query)
	if errors.Is(err, fatsecret.ErrFoodNotFound) {
		b.reply(chatID, fmt.Sprintf(l.FoodLog.NotFound, query))
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Str("op", "log_food").
			Msg("ошибка поиска продукта")
		b.reply(chatID, l.Errors.Unavailable)
		return
	}

	entry := &models.FoodEntry{
		UserID:   userID,
		FoodName: n.Name,
		Calories: n.Calories,
		Protein:  n.Protein,
		Fats:     n.Fats,
		Carbs:    n.Carbs,
		Portion:  n.Portion,
	}
	if err := b.db.SaveFoodEntry(entry); err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Str("op", "log_food").
			Msg("не удалось сохранить запись дневника")
		b.reply(chatID, l.Profile.SaveFailed)
		return
	}

	b.reply(chatID, fmt.Sprintf(l.FoodLog.Saved,
		n.Name, n.Calories, n.Protein, n.Fats, n.Carbs, n.Portion))
}

// handleToday показывает дневник за сегодня с итогами
func (b *Bot) handleToday(chatID, userID int64) {
	l := locales.Get()

	entries, err := b.db.GetTodayFoodEntries(userID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Str("op", "today").
			Msg("не удалось прочитать дневник")
		b.reply(chatID, l.Profile.LoadFailed)
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, l.FoodLog.Empty)
		return
	}

	var sb strings.Builder
	sb.WriteString(l.FoodLog.Header)
	var calories int
	var protein, fats, carbs float64
	for _, e := range entries {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(l.FoodLog.Entry, e.FoodName, e.Calories, e.Protein, e.Fats, e.Carbs))
		calories += e.Calories
		protein += e.Protein
		fats += e.Fats
		carbs += e.Carbs
	}
	sb.WriteString(fmt.Sprintf(l.FoodLog.Totals, calories, protein, fats, carbs))

	b.reply(chatID, sb.String())
}

// handleFallback — нераспознанное сообщение: без анкеты зовём её заполнить,
// с анкетой подсказываем команды
func (b *Bot) handleFallback(chatID, userID int64) {
	l := locales.Get()

	_, err := b.db.GetUserProfile(userID)
	if errors.Is(err, database.ErrProfileNotFound) {
		b.reply(chatID, l.Start.AskProfile)
		return
	}

	b.reply(chatID, l.Unknown)
}

// requireProfile читает анкету; при её отсутствии или сбое чтения отвечает
// пользователю и возвращает nil
func (b *Bot) requireProfile(chatID, userID int64, op string) *models.UserProfile {
	l := locales.Get()

	profile, err := b.db.GetUserProfile(userID)
	if errors.Is(err, database.ErrProfileNotFound) {
		b.reply(chatID, l.Profile.Missing)
		return nil
	}
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Str("op", op).
			Msg("не удалось прочитать профиль")
		b.reply(chatID, l.Profile.LoadFailed)
		return nil
	}
	return profile
}

// replyAskError переводит ошибку LLM-вызова в сообщение пользователю:
// смысловой сбой и недоступность сервиса — разные ответы
func (b *Bot) replyAskError(chatID, userID int64, op string, waitMsgID int, err error) {
	l := locales.Get()

	b.log.Error().Err(err).Int64("user_id", userID).Str("op", op).
		Msg("ошибка запроса к модели")

	text := l.Errors.Unavailable
	if errors.Is(err, gigachat.ErrEmptyReply) || errors.Is(err, gigachat.ErrReplyTooShort) {
		text = l.Errors.PlanFailed
	}

	edit := tgbotapi.NewEditMessageText(chatID, waitMsgID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.reply(chatID, text)
	}
}

// editThenReply редактирует ожидающее сообщение первым куском ответа
// и досылает остальные отдельными сообщениями
func (b *Bot) editThenReply(chatID int64, waitMsgID int, text string) {
	chunks := format.Chunk(text, format.MaxMessageLen)
	if len(chunks) == 0 {
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, waitMsgID, chunks[0])
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn().Err(err).Msg("не удалось отредактировать сообщение")
		b.send(tgbotapi.NewMessage(chatID, chunks[0]))
	}
	for _, chunk := range chunks[1:] {
		b.send(tgbotapi.NewMessage(chatID, chunk))
	}
}

// reply отправляет текст, при необходимости разбивая его на части
func (b *Bot) reply(chatID int64, text string) {
	for _, chunk := range format.Chunk(text, format.MaxMessageLen) {
		b.send(tgbotapi.NewMessage(chatID, chunk))
	}
}

// send — обёртка над api.Send с логированием ошибки отправки
func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, err := b.api.Send(c)
	if err != nil {
		b.log.Error().Err(err).Msg("не удалось отправить сообщение")
	}
	return msg, err
}

// profileSummary форматирует анкету для показа пользователю
func profileSummary(p *models.UserProfile) string {
	return fmt.Sprintf(locales.Get().Profile.Summary,
		p.Name, p.Height, p.Weight, p.Age, p.Goal)
}
