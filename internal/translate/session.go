// Package translate drives the document-translation conversation: one
// document per attempt, priced by character count, paid from the wallet.
package translate

import (
	"github.com/m3rciful/translatebot/core/telegram/state"
	"github.com/m3rciful/translatebot/internal/document"
)

// Conversation states of a translation attempt.
const (
	StateAwaitingDocument          state.State = "awaiting_document"
	StateAwaitingPaymentApproval   state.State = "awaiting_payment_approval"
	StateAwaitingLanguageSelection state.State = "awaiting_language_selection"
	StateTranslating               state.State = "translating"
)

const attemptKey = "attempt"

// Attempt carries the in-flight data of one translation attempt. It lives in
// the user's session from upload until delivery or cancellation.
type Attempt struct {
	DocPath  string
	DocName  string
	Format   document.Format
	Chars    int
	PriceEUR float64
	PriceRUB float64
	Language string
	Paid     bool
}

func storeAttempt(m state.Manager, userID int64, a *Attempt) {
	m.SetTemp(userID, attemptKey, a)
}

func loadAttempt(m state.Manager, userID int64) (*Attempt, bool) {
	v, ok := m.GetTemp(userID, attemptKey)
	if !ok {
		return nil, false
	}
	a, ok := v.(*Attempt)
	return a, ok && a != nil
}

func clearAttempt(m state.Manager, userID int64) {
	m.ClearTemp(userID, attemptKey)
}
