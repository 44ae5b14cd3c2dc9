package handler

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/flashcards-srs/internal/models"
	"github.com/yourusername/flashcards-srs/internal/session"
	"github.com/yourusername/flashcards-srs/internal/srs"
	"github.com/yourusername/flashcards-srs/pkg/utils"
	"go.uber.org/zap"
)

type Service interface {
	StartSession(ctx context.Context, userID int64, deckID string, mode session.Mode) (*session.Manager, error)
	GetCard(ctx context.Context, userID int64, cardID string) (*models.Card, error)
	RecordReview(ctx context.Context, userID int64, cardID string, rating srs.Rating) (*srs.Result, error)
	MarkLearned(ctx context.Context, userID int64, cardID string) error

	ListDecks(ctx context.Context, userID int64) ([]*models.Deck, error)
	UpdateStudySettings(ctx context.Context, userID int64, deckID string, settings srs.Settings) error
	IngestCards(ctx context.Context, userID int64) (int, error)
	RecentReviews(ctx context.Context, userID int64, limit int) ([]*models.CardReview, error)
}

type activeSession struct {
	manager *session.Manager
	deckID  string
	mode    session.Mode
}

type TelegramHandler struct {
	api     *tgbotapi.BotAPI
	service Service

	// keyed by user; updates are handled sequentially so no locking needed
	sessions map[int64]*activeSession
}

func NewTelegramHandler(token string, service Service) (*TelegramHandler, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	return &TelegramHandler{
		api:      api,
		service:  service,
		sessions: make(map[int64]*activeSession),
	}, nil
}

func (h *TelegramHandler) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.api.GetUpdatesChan(u)

	zap.S().Info("bot started")

	for update := range updates {
		if update.Message == nil && update.CallbackQuery == nil {
			continue
		}

		h.handleUpdate(update)
	}
}

func (h *TelegramHandler) handleUpdate(update tgbotapi.Update) {
	ctx := context.Background()

	if update.Message != nil && update.Message.IsCommand() {
		if update.Message.From == nil {
			zap.S().Warn("received command from nil user")
			return
		}
		h.handleCommand(ctx, update)
	} else if update.CallbackQuery != nil {
		if update.CallbackQuery.From == nil {
			zap.S().Warn("received callback from nil user")
			return
		}
		h.handleCallback(ctx, update)
	}
}

func (h *TelegramHandler) handleCommand(ctx context.Context, update tgbotapi.Update) {
	switch update.Message.Command() {
	case "start":
		h.handleStart(update)
	case "decks":
		h.handleDecks(ctx, update)
	case "study":
		h.handleSession(ctx, update, session.ModeDue)
	case "recap":
		h.handleSession(ctx, update, session.ModeRecap)
	case "learn":
		h.handleSession(ctx, update, session.ModeLearn)
	case "more":
		h.handleExtend(ctx, update)
	case "steps":
		h.handleSteps(ctx, update)
	case "ingest":
		h.handleIngest(ctx, update)
	case "stats":
		h.handleStats(ctx, update)
	case "help":
		h.handleHelp(update)
	default:
		h.sendMessage(update.Message.Chat.ID, "Unknown command. Try /help.")
	}
}

func (h *TelegramHandler) handleStart(update tgbotapi.Update) {
	text := `Hi! I run your flashcard reviews.

/study — review cards that are due
/recap — go over cards from the last week
/learn — work through freshly proposed cards
/decks — list your decks
/help — all commands`
	h.sendMessage(update.Message.Chat.ID, text)
}

func (h *TelegramHandler) handleHelp(update tgbotapi.Update) {
	text := `Commands:
/study [deck] — start a review session, optionally scoped to a deck number from /decks
/recap [deck] — revisit recently reviewed cards
/learn [deck] — study newly proposed cards and promote the ones you know
/more — add more cards to the current session
/steps on|off — toggle learning steps for the current session's deck
/ingest — pull freshly drafted cards from your source material
/stats — recent review counts
/decks — list decks with their card state`
	h.sendMessage(update.Message.Chat.ID, text)
}

func (h *TelegramHandler) handleDecks(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	decks, err := h.service.ListDecks(ctx, userID)
	if err != nil {
		zap.S().Error("list decks", zap.Error(err), zap.Int64("user_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	if len(decks) == 0 {
		h.sendMessage(chatID, "No decks yet. Run /ingest to draft cards from your material.")
		return
	}

	text := "📚 Your decks:\n\n"
	for i, d := range decks {
		text += fmt.Sprintf("%d. <b>%s</b>", i+1, escapeHTML(d.Name))
		if d.Description != "" {
			text += " — " + escapeHTML(d.Description)
		}
		text += "\n"
	}
	text += "\nStart with /study, or /study 2 for a single deck."
	h.sendMessage(chatID, text)
}

// deckFromArgs resolves an optional 1-based deck number from the command
// arguments. Empty means all decks.
func (h *TelegramHandler) deckFromArgs(ctx context.Context, userID int64, args string) (string, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", nil
	}

	var n int
	if _, err := fmt.Sscanf(args, "%d", &n); err != nil {
		return "", fmt.Errorf("not a deck number: %q", args)
	}

	decks, err := h.service.ListDecks(ctx, userID)
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(decks) {
		return "", fmt.Errorf("deck number out of range: %d", n)
	}
	return decks[n-1].ID, nil
}

func (h *TelegramHandler) handleSession(ctx context.Context, update tgbotapi.Update, mode session.Mode) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	deckID, err := h.deckFromArgs(ctx, userID, update.Message.CommandArguments())
	if err != nil {
		h.sendMessage(chatID, "Pick a deck by its number from /decks.")
		return
	}

	mgr, err := h.service.StartSession(ctx, userID, deckID, mode)
	if err != nil {
		zap.S().Error("start session", zap.Error(err), zap.Int64("user_id", userID), zap.String("mode", string(mode)))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	if mgr.Len() == 0 {
		switch mode {
		case session.ModeRecap:
			h.sendMessage(chatID, "Nothing reviewed in the last week.")
		case session.ModeLearn:
			h.sendMessage(chatID, "No new cards waiting. Run /ingest to draft more.")
		default:
			h.sendMessage(chatID, "🎉 Nothing due right now!")
		}
		return
	}

	h.sessions[userID] = &activeSession{manager: mgr, deckID: deckID, mode: mode}
	h.sendMessage(chatID, fmt.Sprintf("Session started: %d cards.", mgr.Len()))
	h.showCurrentCard(ctx, userID, chatID)
}

func (h *TelegramHandler) handleExtend(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	active, ok := h.sessions[userID]
	if !ok {
		h.sendMessage(chatID, "No active session. Start one with /study.")
		return
	}

	added, err := active.manager.Extend(ctx)
	if err != nil {
		zap.S().Error("extend session", zap.Error(err), zap.Int64("user_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	if added == 0 {
		h.sendMessage(chatID, "No more cards to add.")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("Added %d cards.", added))
	if active.manager.Len() == added {
		h.showCurrentCard(ctx, userID, chatID)
	}
}

func (h *TelegramHandler) handleSteps(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	active, ok := h.sessions[userID]
	if !ok || active.deckID == "" {
		h.sendMessage(chatID, "Start a deck-scoped session first, e.g. /study 2.")
		return
	}

	args := strings.Fields(update.Message.CommandArguments())
	if len(args) == 0 || (args[0] != "on" && args[0] != "off") {
		h.sendMessage(chatID, "Usage: /steps on|off [1m,10m,1d]")
		return
	}
	arg := args[0]

	var customSteps []string
	if len(args) > 1 {
		customSteps = srs.ParseStepsString(strings.Join(args[1:], " "))
		if len(customSteps) == 0 {
			h.sendMessage(chatID, "Could not read the step list. Use step strings like 1m,10m,1d.")
			return
		}
	}

	decks, err := h.service.ListDecks(ctx, userID)
	if err != nil {
		zap.S().Error("list decks", zap.Error(err), zap.Int64("user_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	settings := srs.DefaultSettings()
	for _, d := range decks {
		if d.ID == active.deckID {
			settings = d.StudySettings
		}
	}
	settings.LearningStepsEnabled = arg == "on"
	if len(customSteps) > 0 {
		settings.LearningSteps = customSteps
	}

	if err := h.service.UpdateStudySettings(ctx, userID, active.deckID, settings); err != nil {
		zap.S().Error("update study settings", zap.Error(err), zap.Int64("user_id", userID), zap.String("deck_id", active.deckID))
		h.sendMessage(chatID, "Could not update the deck settings.")
		return
	}
	reply := "Learning steps " + arg + "."
	if len(customSteps) > 0 {
		reply += " Steps: " + strings.Join(customSteps, ", ") + "."
	}
	h.sendMessage(chatID, reply+" Takes effect next session.")
}

func (h *TelegramHandler) handleIngest(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	count, err := h.service.IngestCards(ctx, userID)
	if err != nil {
		zap.S().Error("ingest cards", zap.Error(err), zap.Int64("user_id", userID))
		h.sendMessage(chatID, "Could not draft new cards. Try again later.")
		return
	}

	if count == 0 {
		h.sendMessage(chatID, "Nothing new to draft from.")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("Drafted %d cards. Review them with /learn.", count))
}

func (h *TelegramHandler) handleStats(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	reviews, err := h.service.RecentReviews(ctx, userID, 100)
	if err != nil {
		zap.S().Error("recent reviews", zap.Error(err), zap.Int64("user_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	if len(reviews) == 0 {
		h.sendMessage(chatID, "No reviews yet. Start with /study.")
		return
	}

	today := 0
	byRating := make(map[string]int)
	for _, r := range reviews {
		byRating[r.Rating]++
		if utils.DatesEqual(r.ReviewedAt, utils.NowUTC()) {
			today++
		}
	}

	text := fmt.Sprintf("📊 Last %d reviews:\n\n", len(reviews))
	text += fmt.Sprintf("Today: %d\n", today)
	for _, rating := range []string{"again", "hard", "good", "easy"} {
		if n := byRating[rating]; n > 0 {
			text += fmt.Sprintf("%s: %d\n", rating, n)
		}
	}
	h.sendMessage(chatID, text)
}

func (h *TelegramHandler) showCurrentCard(ctx context.Context, userID, chatID int64) {
	active, ok := h.sessions[userID]
	if !ok {
		return
	}

	entry, ok := active.manager.Current()
	if !ok {
		delete(h.sessions, userID)
		h.sendMessage(chatID, "✅ Session finished! Use /more next time you want a longer run.")
		return
	}

	card, err := h.service.GetCard(ctx, userID, entry.CardID)
	if err != nil {
		zap.S().Error("get card", zap.Error(err), zap.Int64("user_id", userID), zap.String("card_id", entry.CardID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	prompt := card.Front
	if entry.Reversed {
		prompt = card.Back
	}

	text := fmt.Sprintf("🃏 <b>%s</b>\n\n%d cards left", escapeHTML(prompt), active.manager.Len())
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Show answer", "reveal_"+card.ID),
		),
	)
	h.sendMessageWithKeyboard(chatID, text, keyboard)
}

func (h *TelegramHandler) handleCallback(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data
	chatID := callback.Message.Chat.ID

	if cardID, ok := strings.CutPrefix(data, "reveal_"); ok {
		h.handleReveal(ctx, callback, cardID)
	} else if rest, ok := strings.CutPrefix(data, "rate_"); ok {
		rating, cardID, found := strings.Cut(rest, "_")
		if found {
			h.handleRate(ctx, callback, cardID, srs.Rating(rating))
		}
	} else if cardID, ok := strings.CutPrefix(data, "learned_"); ok {
		h.handleLearned(ctx, callback, cardID)
	} else if cardID, ok := strings.CutPrefix(data, "skip_"); ok {
		h.handleSkip(ctx, callback, cardID)
	} else {
		zap.S().Warn("unknown callback data", zap.String("data", data), zap.Int64("user_id", callback.From.ID))
		h.sendMessage(chatID, "Unknown action. Try /help.")
	}

	// always answer to clear the loading indicator
	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.api.Request(callbackConfig); err != nil {
		zap.S().Error("send callback answer", zap.Error(err), zap.String("callback_id", callback.ID))
	}
}

func (h *TelegramHandler) handleReveal(ctx context.Context, callback *tgbotapi.CallbackQuery, cardID string) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	card, err := h.service.GetCard(ctx, userID, cardID)
	if err != nil {
		zap.S().Error("get card", zap.Error(err), zap.Int64("user_id", userID), zap.String("card_id", cardID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	active, inSession := h.sessions[userID]
	reversed := false
	if inSession {
		if entry, ok := active.manager.Current(); ok && entry.CardID == cardID {
			reversed = entry.Reversed
		}
	}

	front, back := card.Front, card.Back
	if reversed {
		front, back = back, front
	}
	text := fmt.Sprintf("🃏 <b>%s</b>\n\n%s", escapeHTML(front), escapeHTML(back))

	var keyboard tgbotapi.InlineKeyboardMarkup
	if inSession && active.mode == session.ModeLearn && card.Status == models.CardStatusProposed {
		keyboard = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Got it ✓", "learned_"+card.ID),
				tgbotapi.NewInlineKeyboardButtonData("Skip", "skip_"+card.ID),
			),
		)
	} else {
		keyboard = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Again", "rate_again_"+card.ID),
				tgbotapi.NewInlineKeyboardButtonData("Hard", "rate_hard_"+card.ID),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Good", "rate_good_"+card.ID),
				tgbotapi.NewInlineKeyboardButtonData("Easy", "rate_easy_"+card.ID),
			),
		)
	}
	h.sendMessageWithKeyboard(chatID, text, keyboard)
}

func (h *TelegramHandler) handleRate(ctx context.Context, callback *tgbotapi.CallbackQuery, cardID string, rating srs.Rating) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	result, err := h.service.RecordReview(ctx, userID, cardID, rating)
	if err != nil {
		zap.S().Error("record review", zap.Error(err), zap.Int64("user_id", userID), zap.String("card_id", cardID))
		h.sendMessage(chatID, "Could not save the review. Try again.")
		return
	}

	if active, ok := h.sessions[userID]; ok {
		active.manager.OnRated(cardID, rating, *result)
	}

	h.sendMessage(chatID, formatResult(*result))
	h.showCurrentCard(ctx, userID, chatID)
}

func (h *TelegramHandler) handleLearned(ctx context.Context, callback *tgbotapi.CallbackQuery, cardID string) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	if err := h.service.MarkLearned(ctx, userID, cardID); err != nil {
		zap.S().Error("mark learned", zap.Error(err), zap.Int64("user_id", userID), zap.String("card_id", cardID))
		h.sendMessage(chatID, "Could not save the card. Try again.")
		return
	}

	if active, ok := h.sessions[userID]; ok {
		active.manager.Advance()
	}
	h.sendMessage(chatID, "Added to your reviews. 👍")
	h.showCurrentCard(ctx, userID, chatID)
}

func (h *TelegramHandler) handleSkip(ctx context.Context, callback *tgbotapi.CallbackQuery, _ string) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	if active, ok := h.sessions[userID]; ok {
		active.manager.Advance()
	}
	h.showCurrentCard(ctx, userID, chatID)
}

func formatResult(result srs.Result) string {
	if minutes, ok := result.Data.IntervalMinutes(); ok && result.Interval <= 1 && (result.IsLearning || result.IsRelearning) {
		return fmt.Sprintf("Next showing in %s.", formatMinutes(minutes))
	}
	if result.Interval == 1 {
		return "See you tomorrow. 📅"
	}
	return fmt.Sprintf("Next review on %s.", utils.StartOfDay(result.DueAt).Format("Mon, Jan 2"))
}

func formatMinutes(minutes int) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh", minutes/60)
	default:
		return fmt.Sprintf("%dd", minutes/1440)
	}
}

func (h *TelegramHandler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.api.Send(msg); err != nil {
		zap.S().Error("send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (h *TelegramHandler) sendMessageWithKeyboard(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := h.api.Send(msg); err != nil {
		zap.S().Error("send message with keyboard", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
