package translate

import (
	"fmt"
	"strconv"

	"github.com/m3rciful/translatebot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Callback keys understood by the workflow handlers.
const (
	CallbackLanguage    = "lang"
	CallbackApprove     = "approve_payment"
	CallbackCancel      = "cancel_payment"
	CallbackTopUp       = "top_up_wallet"
	CallbackShowBalance = "show_balance"
)

type language struct {
	Code string
	Flag string
}

// supportedLanguages is the fixed target-language set shown to users.
var supportedLanguages = []language{
	{"EN", "🇬🇧"},
	{"ES", "🇪🇸"},
	{"FR", "🇫🇷"},
	{"DE", "🇩🇪"},
	{"IT", "🇮🇹"},
	{"PT", "🇵🇹"},
	{"NL", "🇳🇱"},
	{"JA", "🇯🇵"},
	{"RU", "🇷🇺"},
	{"ZH", "🇨🇳"},
	{"TR", "🇹🇷"},
}

// IsSupportedLanguage reports whether the code is in the offered set.
func IsSupportedLanguage(code string) bool {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// LanguageKeyboard lists target languages two per row plus a cancel button.
func LanguageKeyboard() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(supportedLanguages)+1)
	for _, l := range supportedLanguages {
		btns = append(btns, keyboard.InlineBtn{
			Text:   fmt.Sprintf("%s %s", l.Flag, l.Code),
			Unique: CallbackLanguage,
			Data:   l.Code,
		})
	}
	markup := keyboard.InlineButtonsNPerRow(btns, 2)
	cancel := keyboard.CancelButton(markup, CallbackCancel)
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{*cancel.Inline()})
	return markup
}

// ApprovalKeyboard offers pay/cancel for a quoted document.
func ApprovalKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "✅ Pay from balance", Unique: CallbackApprove},
		},
		[]keyboard.InlineBtn{
			{Text: "❌ Cancel", Unique: CallbackCancel},
		},
	)
}

// TopUpKeyboard offers the configured top-up amounts plus cancel.
func TopUpKeyboard(amounts []int) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(amounts))
	for _, a := range amounts {
		btns = append(btns, keyboard.InlineBtn{
			Text:   fmt.Sprintf("💳 %d RUB", a),
			Unique: CallbackTopUp,
			Data:   strconv.Itoa(a),
		})
	}
	markup := keyboard.InlineButtonsNPerRow(btns, 3)
	cancel := keyboard.CancelButton(markup, CallbackCancel)
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{*cancel.Inline()})
	return markup
}

// MenuKeyboard is shown on /start. The top-up button carries amount 0,
// which opens the amount chooser instead of a fixed invoice.
func MenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "💰 Balance", Unique: CallbackShowBalance},
		},
		[]keyboard.InlineBtn{
			{Text: "💳 Top up", Unique: CallbackTopUp, Data: "0"},
		},
	)
}
