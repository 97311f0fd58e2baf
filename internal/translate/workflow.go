package translate

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/m3rciful/translatebot/core/logger"
	"github.com/m3rciful/translatebot/core/telegram/state"
	"github.com/m3rciful/translatebot/internal/document"
	"github.com/m3rciful/translatebot/internal/pricing"
	"github.com/m3rciful/translatebot/internal/wallet"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Translator produces translated content in a target language.
type Translator interface {
	TranslateText(ctx context.Context, text, targetLang string) (string, error)
	TranslateDocument(ctx context.Context, inPath, outPath, targetLang string) error
}

// Replier abstracts the chat so the workflow can be exercised without a bot.
type Replier interface {
	Reply(text string, markup ...*tele.ReplyMarkup) error
	ReplyDocument(path, filename string) error
}

// Options tune the workflow behaviour.
type Options struct {
	// DocumentMode sends the whole file to the translator. When false the
	// workflow extracts text, translates it, and authors a new document.
	DocumentMode bool
	// TopUpAmounts are the RUB amounts offered on the top-up keyboard.
	TopUpAmounts []int
}

// DefaultTopUpAmounts are offered when none are configured.
var DefaultTopUpAmounts = []int{100, 500, 1000}

// Workflow owns one user's pass through upload, quote, payment, language
// selection, translation, and delivery.
type Workflow struct {
	states     state.Manager
	wallet     *wallet.Service
	policy     pricing.Policy
	translator Translator
	docs       *document.Store
	opts       Options
}

// NewWorkflow wires the workflow dependencies.
func NewWorkflow(states state.Manager, w *wallet.Service, policy pricing.Policy, tr Translator, docs *document.Store, opts Options) *Workflow {
	if len(opts.TopUpAmounts) == 0 {
		opts.TopUpAmounts = DefaultTopUpAmounts
	}
	return &Workflow{
		states:     states,
		wallet:     w,
		policy:     policy,
		translator: tr,
		docs:       docs,
		opts:       opts,
	}
}

// TopUpAmounts returns the configured top-up choices.
func (w *Workflow) TopUpAmounts() []int {
	return w.opts.TopUpAmounts
}

// Start greets the user and opens a fresh attempt.
func (w *Workflow) Start(ctx context.Context, userID int64, r Replier) error {
	if a, ok := loadAttempt(w.states, userID); ok {
		w.docs.Remove(a.DocPath)
	}
	w.states.Clear(userID)
	w.states.SetState(userID, StateAwaitingDocument)
	return r.Reply(
		"Hi! Send me a PDF or text document and I will translate it.\n"+
			"You pay per character from your prepaid balance.",
		MenuKeyboard(),
	)
}

// BalanceOf returns the user's current balance for presentation.
func (w *Workflow) BalanceOf(ctx context.Context, userID int64) (float64, error) {
	return w.wallet.Balance(ctx, userID)
}

// HandleDocument runs ingest, measure, quote, and gate for an uploaded file.
func (w *Workflow) HandleDocument(ctx context.Context, userID int64, r Replier, src io.Reader, name, mime string) error {
	switch w.states.GetState(userID) {
	case state.StateIdle, StateAwaitingDocument:
	default:
		return r.Reply("You already have a document in progress. Finish it or press cancel first.")
	}

	format := document.DetectFormat(mime, name)
	if format == document.FormatUnknown {
		return r.Reply("I can only translate PDF and plain-text documents. Please send a .pdf or .txt file.")
	}

	path, err := w.docs.Save(src, name)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelError, "translate.ingest",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("doc", name),
			slog.String("err", err.Error()),
		)
		return r.Reply("Could not store your document, please try again.")
	}

	text, err := document.ExtractText(path, format)
	if err != nil {
		w.docs.Remove(path)
		logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelWarn, "translate.measure",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("doc", name),
			slog.String("err", err.Error()),
		)
		w.states.SetState(userID, StateAwaitingDocument)
		return r.Reply("I could not read any text from that document. Please check the file and try again.")
	}

	chars := utf8.RuneCountInString(text)
	if chars == 0 {
		w.docs.Remove(path)
		w.states.SetState(userID, StateAwaitingDocument)
		return r.Reply("That document contains no extractable text.")
	}

	q := w.policy.QuoteFor(chars)
	attempt := &Attempt{
		DocPath:  path,
		DocName:  name,
		Format:   format,
		Chars:    chars,
		PriceEUR: q.PriceEUR,
		PriceRUB: q.PriceRUB,
	}
	storeAttempt(w.states, userID, attempt)
	w.states.SetState(userID, StateAwaitingPaymentApproval)

	logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelInfo, "translate.quote",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("doc", name),
		slog.Int("chars", chars),
		slog.Float64("price_eur", q.PriceEUR),
		slog.Float64("price_rub", q.PriceRUB),
	)

	quoteText := fmt.Sprintf(
		"Document: %s\nCharacters: %d\nPrice: %.2f RUB (%.3f EUR)",
		name, chars, q.PriceRUB, q.PriceEUR,
	)

	bal, err := w.wallet.Balance(ctx, userID)
	if err != nil {
		return r.Reply(quoteText + "\n\nCould not read your balance, press pay to retry.")
	}
	if bal < q.PriceRUB {
		return r.Reply(
			fmt.Sprintf("%s\n\nYour balance is %.2f RUB, which is not enough. Top up and press pay again.", quoteText, bal),
			TopUpKeyboard(w.opts.TopUpAmounts),
		)
	}
	return r.Reply(quoteText+"\n\nPay from balance?", ApprovalKeyboard())
}

// HandleText re-prompts a user who sent text while a document was expected.
func (w *Workflow) HandleText(ctx context.Context, userID int64, r Replier) error {
	return r.Reply("Please send the document you want translated as a file attachment.")
}

// Approve debits the quoted price and moves on to language selection. The
// state swap makes a double press debit exactly once: only the first press
// wins the transition, the loser is ignored.
func (w *Workflow) Approve(ctx context.Context, userID int64, r Replier) error {
	if !w.states.CompareAndSwapState(userID, StateAwaitingPaymentApproval, StateAwaitingLanguageSelection) {
		return nil
	}

	attempt, ok := loadAttempt(w.states, userID)
	if !ok {
		w.states.SetState(userID, StateAwaitingDocument)
		return r.Reply("I lost track of your document, please upload it again.")
	}

	bal, err := w.wallet.Balance(ctx, userID)
	if err != nil {
		w.states.SetState(userID, StateAwaitingPaymentApproval)
		return r.Reply("Could not read your balance, please try again.")
	}
	if bal < attempt.PriceRUB {
		w.states.SetState(userID, StateAwaitingPaymentApproval)
		logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelInfo, "translate.gate",
			slog.String("status", "ok"),
			slog.String("outcome", "insufficient"),
			slog.Int64("user_id", userID),
			slog.Float64("balance", bal),
			slog.Float64("price_rub", attempt.PriceRUB),
		)
		return r.Reply(
			fmt.Sprintf("Your balance is %.2f RUB but the translation costs %.2f RUB. Top up and press pay again.", bal, attempt.PriceRUB),
			TopUpKeyboard(w.opts.TopUpAmounts),
		)
	}

	newBal, err := w.wallet.Debit(ctx, userID, attempt.PriceRUB)
	if err != nil {
		w.states.SetState(userID, StateAwaitingPaymentApproval)
		return r.Reply("Payment failed, nothing was charged. Please try again.")
	}

	attempt.Paid = true
	storeAttempt(w.states, userID, attempt)

	logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelInfo, "translate.debit",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Float64("price_rub", attempt.PriceRUB),
		slog.Float64("balance", newBal),
	)

	return r.Reply(
		fmt.Sprintf("Charged %.2f RUB. Balance: %.2f RUB.\nChoose the target language:", attempt.PriceRUB, newBal),
		LanguageKeyboard(),
	)
}

// SelectLanguage translates the paid document and delivers the result.
// Working files are removed on every exit path.
func (w *Workflow) SelectLanguage(ctx context.Context, userID int64, r Replier, lang string) error {
	if !IsSupportedLanguage(lang) {
		return r.Reply("That language is not supported, pick one from the keyboard.")
	}
	if !w.states.CompareAndSwapState(userID, StateAwaitingLanguageSelection, StateTranslating) {
		return nil
	}

	attempt, ok := loadAttempt(w.states, userID)
	if !ok || !attempt.Paid {
		w.states.Clear(userID)
		w.states.SetState(userID, StateAwaitingDocument)
		return r.Reply("I lost track of your document, please upload it again.")
	}

	if _, err := os.Stat(attempt.DocPath); err != nil {
		clearAttempt(w.states, userID)
		w.states.SetState(userID, StateAwaitingDocument)
		logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelWarn, "translate.missing_file",
			slog.Int64("user_id", userID),
			slog.String("doc", attempt.DocName),
		)
		return r.Reply("Your uploaded file is no longer available. Please upload it again.")
	}

	attempt.Language = lang
	storeAttempt(w.states, userID, attempt)

	_ = r.Reply(fmt.Sprintf("Translating into %s, this can take a moment...", lang))

	outPath := w.docs.OutputPath(attempt.DocPath, lang)
	defer func() {
		w.docs.Remove(attempt.DocPath, outPath)
		w.states.Clear(userID)
	}()

	if err := w.translate(ctx, attempt, outPath, lang); err != nil {
		logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelError, "translate.failed",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("doc", attempt.DocName),
			slog.String("lang", lang),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return r.Reply("Translation failed: " + userMessage(err) + "\nPlease try again later.")
	}

	if err := r.ReplyDocument(outPath, deliveredName(attempt.DocName, lang)); err != nil {
		logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelError, "translate.deliver",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return r.Reply("Your translation finished but I could not send the file. Please try again.")
	}

	logger.LogEvent(ctx, logger.SVCTranslate, slog.LevelInfo, "translate.done",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("doc", attempt.DocName),
		slog.String("lang", lang),
		slog.Int("chars", attempt.Chars),
	)
	return r.Reply("Done! Send another document whenever you like.")
}

// Cancel aborts the current attempt from any non-idle state. It never fails.
func (w *Workflow) Cancel(ctx context.Context, userID int64, r Replier) error {
	if a, ok := loadAttempt(w.states, userID); ok {
		w.docs.Remove(a.DocPath)
	}
	w.states.Clear(userID)
	w.states.SetState(userID, StateAwaitingDocument)
	return r.Reply("Cancelled. Send me another document when you are ready.")
}

func (w *Workflow) translate(ctx context.Context, attempt *Attempt, outPath, lang string) error {
	if w.opts.DocumentMode {
		return w.translator.TranslateDocument(ctx, attempt.DocPath, outPath, lang)
	}

	text, err := document.ExtractText(attempt.DocPath, attempt.Format)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	translated, err := w.translator.TranslateText(ctx, text, lang)
	if err != nil {
		return err
	}
	if err := document.WriteTranslated(translated, outPath, attempt.Format); err != nil {
		return fmt.Errorf("author output: %w", err)
	}
	return nil
}

func deliveredName(original, lang string) string {
	return fmt.Sprintf("translated_%s_%s", lang, original)
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	return logger.SanitizeLimit(err.Error(), 200)
}
