package translate

import (
	"fmt"

	"github.com/m3rciful/translatebot/core/telegram/callbacks"
	"github.com/m3rciful/translatebot/core/telegram/format"
	tghelpers "github.com/m3rciful/translatebot/core/telegram/helpers"
	"github.com/m3rciful/translatebot/core/telegram/state"
	"github.com/m3rciful/translatebot/internal/payment"

	tele "gopkg.in/telebot.v4"
)

// State exposes the user's current conversation state for routing.
func (w *Workflow) State(userID int64) state.State {
	return w.states.GetState(userID)
}

type teleReplier struct {
	c tele.Context
}

func (r teleReplier) Reply(text string, markup ...*tele.ReplyMarkup) error {
	if len(markup) > 0 && markup[0] != nil {
		return tghelpers.SendText(r.c, text, &tele.SendOptions{ReplyMarkup: markup[0]})
	}
	return tghelpers.SendText(r.c, text)
}

func (r teleReplier) ReplyDocument(path, filename string) error {
	return tghelpers.SendDocument(r.c, path, filename)
}

// Handlers adapts the workflow and payment bridge to telebot.
type Handlers struct {
	wf       *Workflow
	payments *payment.Bridge
}

// NewHandlers builds the telebot adapters.
func NewHandlers(wf *Workflow, payments *payment.Bridge) *Handlers {
	return &Handlers{wf: wf, payments: payments}
}

// StartCommand handles /start.
func (h *Handlers) StartCommand(c tele.Context) error {
	return h.wf.Start(tghelpers.BuildContext(c), c.Sender().ID, teleReplier{c})
}

// BalanceCommand handles /balance.
func (h *Handlers) BalanceCommand(c tele.Context) error {
	bal, err := h.wf.BalanceOf(tghelpers.BuildContext(c), c.Sender().ID)
	if err != nil {
		return teleReplier{c}.Reply("Could not read your balance, please try again later.")
	}
	if name := c.Sender().Username; name != "" {
		if esc, err := format.EscapeMarkdown("@"+name, format.MarkdownV1); err == nil {
			return tghelpers.SendMD(c, fmt.Sprintf("Balance for %s: *%.2f RUB*", esc, bal))
		}
	}
	return tghelpers.SendMD(c, fmt.Sprintf("Your balance: *%.2f RUB*", bal))
}

// DocumentUpload ingests an uploaded file.
func (h *Handlers) DocumentUpload(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	rc, err := c.Bot().File(&doc.File)
	if err != nil {
		return teleReplier{c}.Reply("Could not download your document from Telegram, please try again.")
	}
	defer rc.Close()

	return h.wf.HandleDocument(tghelpers.BuildContext(c), c.Sender().ID, teleReplier{c}, rc, doc.FileName, doc.MIME)
}

// ApproveCallback handles the pay button.
func (h *Handlers) ApproveCallback(c tele.Context) error {
	return h.wf.Approve(tghelpers.BuildContext(c), c.Sender().ID, teleReplier{c})
}

// CancelCallback aborts the current attempt.
func (h *Handlers) CancelCallback(c tele.Context) error {
	return h.wf.Cancel(tghelpers.BuildContext(c), c.Sender().ID, teleReplier{c})
}

// LanguageCallback handles a target-language pick.
func (h *Handlers) LanguageCallback(c tele.Context) error {
	lang := callbacks.CallbackPayload(c)
	return h.wf.SelectLanguage(tghelpers.BuildContext(c), c.Sender().ID, teleReplier{c}, lang)
}

// BalanceCallback shows the balance from the menu keyboard.
func (h *Handlers) BalanceCallback(c tele.Context) error {
	return h.BalanceCommand(c)
}

// TopUpCallback opens the amount chooser or issues an invoice for a fixed amount.
// Amount 0 comes from the menu button; its message is edited into the chooser.
func (h *Handlers) TopUpCallback(c tele.Context) error {
	amount, err := callbacks.PayloadInt(c)
	if err != nil || amount <= 0 {
		return tghelpers.EditOrSendMD(c, "Choose a top-up amount:", TopUpKeyboard(h.wf.TopUpAmounts()))
	}
	if err := h.payments.RequestTopUp(c, amount); err != nil {
		return teleReplier{c}.Reply("Could not create the payment invoice, please try again later.")
	}
	return nil
}

// PaymentConfirmed notifies the user after a successful top-up is credited.
func (h *Handlers) PaymentConfirmed(c tele.Context, balance float64) error {
	return teleReplier{c}.Reply(fmt.Sprintf("Payment received. Your balance is now %.2f RUB.", balance))
}

// RouteText resolves text updates by conversation state.
func (h *Handlers) RouteText(c tele.Context) (tele.HandlerFunc, string, bool) {
	userID := c.Sender().ID
	switch h.wf.State(userID) {
	case StateAwaitingDocument:
		return func(c tele.Context) error {
			return h.wf.HandleText(tghelpers.BuildContext(c), c.Sender().ID, teleReplier{c})
		}, "awaiting_document.text", true
	case StateAwaitingPaymentApproval:
		return func(c tele.Context) error {
			return teleReplier{c}.Reply("Use the buttons to pay or cancel the quoted translation.")
		}, "awaiting_payment.text", true
	case StateAwaitingLanguageSelection:
		return func(c tele.Context) error {
			return teleReplier{c}.Reply("Pick the target language from the keyboard, or cancel.")
		}, "awaiting_language.text", true
	case StateTranslating:
		return func(c tele.Context) error {
			return teleReplier{c}.Reply("Your translation is in progress, one moment.")
		}, "translating.text", true
	}
	return nil, "", false
}

// RouteDocument sends document updates through ingest regardless of state;
// the workflow itself decides whether an upload is currently legal.
func (h *Handlers) RouteDocument(c tele.Context) (tele.HandlerFunc, string, bool) {
	return h.DocumentUpload, "document.upload", true
}
