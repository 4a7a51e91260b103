package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/speakingzone/examiner/internal/transport"
)

// Button labels. The router matches incoming text against these, so the
// constants are shared between keyboard construction and dispatch.
const (
	btnSpeaking   = "🗣 Speaking"
	btnDictionary = "📚 Dictionary"
	btnWriting    = "✍️ Writing"

	btnPause  = "⏸ Pause"
	btnResume = "▶️ Resume"
	btnStop   = "⛔ Stop"
	btnBack   = "⬅️ Orqaga"

	btnUzEn = "🇺🇿 UZ → EN"
	btnEnUz = "🇬🇧 EN → UZ 🔊"
)

// checkSubCallback is the callback data of the "check my subscription" button.
const checkSubCallback = "check_sub"

var (
	mainKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSpeaking),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDictionary),
			tgbotapi.NewKeyboardButton(btnWriting),
		),
	)

	examKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPause),
			tgbotapi.NewKeyboardButton(btnResume),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStop),
			tgbotapi.NewKeyboardButton(btnBack),
		),
	)

	backKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBack),
		),
	)

	dictionaryKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnUzEn),
			tgbotapi.NewKeyboardButton(btnEnUz),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBack),
		),
	)
)

// replyMarkup maps the transport-level keyboard selector to a concrete
// Telegram reply markup, or nil for KeyboardNone.
func replyMarkup(kb transport.Keyboard) interface{} {
	switch kb {
	case transport.KeyboardMain:
		return mainKeyboard
	case transport.KeyboardExam:
		return examKeyboard
	case transport.KeyboardBack:
		return backKeyboard
	case transport.KeyboardDictionary:
		return dictionaryKeyboard
	default:
		return nil
	}
}

// subscribeKeyboard builds the inline keyboard shown to users who have not
// passed the subscription gate.
func subscribeKeyboard(channelURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("✅ Obuna bo‘lish", channelURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Obunani tekshirish", checkSubCallback),
		),
	)
}
