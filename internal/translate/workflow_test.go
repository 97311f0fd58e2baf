package translate

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/translatebot/core/telegram/state"
	"github.com/m3rciful/translatebot/internal/document"
	"github.com/m3rciful/translatebot/internal/pricing"
	"github.com/m3rciful/translatebot/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type fakeReplier struct {
	mu      sync.Mutex
	texts   []string
	markups []*tele.ReplyMarkup
	docs    []string
}

func (r *fakeReplier) Reply(text string, markup ...*tele.ReplyMarkup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	if len(markup) > 0 {
		r.markups = append(r.markups, markup[0])
	} else {
		r.markups = append(r.markups, nil)
	}
	return nil
}

func (r *fakeReplier) ReplyDocument(path, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, filename)
	return nil
}

func (r *fakeReplier) lastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func (r *fakeReplier) lastMarkup() *tele.ReplyMarkup {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.markups) - 1; i >= 0; i-- {
		if r.markups[i] != nil {
			return r.markups[i]
		}
	}
	return nil
}

func markupHasUnique(m *tele.ReplyMarkup, unique string) bool {
	if m == nil {
		return false
	}
	for _, row := range m.InlineKeyboard {
		for _, btn := range row {
			if btn.Unique == unique {
				return true
			}
		}
	}
	return false
}

type fakeTranslator struct {
	failText error
	calls    int
}

func (t *fakeTranslator) TranslateText(_ context.Context, text, lang string) (string, error) {
	t.calls++
	if t.failText != nil {
		return "", t.failText
	}
	return "[" + lang + "] " + text, nil
}

func (t *fakeTranslator) TranslateDocument(_ context.Context, inPath, outPath, lang string) error {
	t.calls++
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, append([]byte("["+lang+"] "), data...), 0o644)
}

type fixture struct {
	wf     *Workflow
	wallet *wallet.Service
	states state.Manager
	tr     *fakeTranslator
	dir    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	docs, err := document.NewStore(dir)
	require.NoError(t, err)

	states := state.NewMemoryManager()
	w := wallet.NewService(wallet.NewMemoryStore())
	tr := &fakeTranslator{}

	return &fixture{
		wf:     NewWorkflow(states, w, pricing.DefaultPolicy(), tr, docs, opts),
		wallet: w,
		states: states,
		tr:     tr,
		dir:    dir,
	}
}

func (f *fixture) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func upload(t *testing.T, f *fixture, userID int64, r Replier, chars int) {
	t.Helper()
	text := strings.Repeat("a", chars)
	require.NoError(t, f.wf.HandleDocument(context.Background(), userID, r, strings.NewReader(text), "doc.txt", "text/plain"))
}

func TestHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(1)

	_, err := f.wallet.Credit(ctx, user, 200)
	require.NoError(t, err)

	require.NoError(t, f.wf.Start(ctx, user, r))
	upload(t, f, user, r, 50_000)

	assert.Equal(t, StateAwaitingPaymentApproval, f.wf.State(user))
	assert.Contains(t, r.lastText(), "100.00 RUB")
	assert.Contains(t, r.lastText(), "1.000 EUR")
	assert.True(t, markupHasUnique(r.lastMarkup(), CallbackApprove))

	require.NoError(t, f.wf.Approve(ctx, user, r))
	assert.Equal(t, StateAwaitingLanguageSelection, f.wf.State(user))

	bal, err := f.wallet.Balance(ctx, user)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, bal, 1e-9)

	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "FR"))

	require.Len(t, r.docs, 1)
	assert.Equal(t, "translated_FR_doc.txt", r.docs[0])
	assert.Equal(t, state.StateIdle, f.wf.State(user))
	assert.Empty(t, f.tempFiles(t), "all working files must be removed")
	assert.Equal(t, 1, f.tr.calls)
}

func TestDoubleApproveDebitsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(2)

	_, err := f.wallet.Credit(ctx, user, 100)
	require.NoError(t, err)

	upload(t, f, user, r, 50_000)

	require.NoError(t, f.wf.Approve(ctx, user, r))
	require.NoError(t, f.wf.Approve(ctx, user, r))

	bal, err := f.wallet.Balance(ctx, user)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, bal, 1e-9, "two rapid approvals must debit exactly once")
}

func TestInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(3)

	_, err := f.wallet.Credit(ctx, user, 10)
	require.NoError(t, err)

	upload(t, f, user, r, 50_000)
	assert.Contains(t, r.lastText(), "10.00 RUB")
	assert.True(t, markupHasUnique(r.lastMarkup(), CallbackTopUp))

	require.NoError(t, f.wf.Approve(ctx, user, r))

	bal, err := f.wallet.Balance(ctx, user)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, bal, 1e-9, "no debit may happen on insufficient balance")
	assert.Equal(t, StateAwaitingPaymentApproval, f.wf.State(user), "attempt must stay retryable")
}

func TestRetryAfterTopUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(4)

	upload(t, f, user, r, 50_000)
	require.NoError(t, f.wf.Approve(ctx, user, r))
	assert.Equal(t, StateAwaitingPaymentApproval, f.wf.State(user))

	_, err := f.wallet.Credit(ctx, user, 500)
	require.NoError(t, err)

	require.NoError(t, f.wf.Approve(ctx, user, r))
	assert.Equal(t, StateAwaitingLanguageSelection, f.wf.State(user))

	bal, err := f.wallet.Balance(ctx, user)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, bal, 1e-9)
}

func TestCancelClearsSessionAndFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(5)

	upload(t, f, user, r, 1000)
	require.NotEmpty(t, f.tempFiles(t))

	require.NoError(t, f.wf.Cancel(ctx, user, r))

	assert.Equal(t, StateAwaitingDocument, f.wf.State(user))
	assert.Empty(t, f.tempFiles(t), "cancel must remove the uploaded file")

	if _, ok := loadAttempt(f.states, user); ok {
		t.Fatal("cancel must clear the attempt")
	}
}

func TestRejectUnsupportedDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(6)

	err := f.wf.HandleDocument(ctx, user, r, strings.NewReader("binary"), "photo.png", "image/png")
	require.NoError(t, err)

	assert.Contains(t, r.lastText(), "PDF")
	assert.Equal(t, state.StateIdle, f.wf.State(user))
	assert.Empty(t, f.tempFiles(t))
}

func TestRejectEmptyDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(7)

	err := f.wf.HandleDocument(ctx, user, r, strings.NewReader(""), "empty.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingDocument, f.wf.State(user))
	assert.Empty(t, f.tempFiles(t))
}

func TestUploadWhileAttemptInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(8)

	upload(t, f, user, r, 1000)
	require.Len(t, f.tempFiles(t), 1)

	err := f.wf.HandleDocument(ctx, user, r, strings.NewReader("more"), "second.txt", "text/plain")
	require.NoError(t, err)

	assert.Contains(t, r.lastText(), "in progress")
	assert.Len(t, f.tempFiles(t), 1, "second upload must not be stored")
}

func TestMissingFileAtTranslationTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(9)

	_, err := f.wallet.Credit(ctx, user, 100)
	require.NoError(t, err)

	upload(t, f, user, r, 1000)
	require.NoError(t, f.wf.Approve(ctx, user, r))

	// simulate external removal of the uploaded file
	for _, name := range f.tempFiles(t) {
		require.NoError(t, os.Remove(f.dir+"/"+name))
	}

	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "DE"))

	assert.Equal(t, StateAwaitingDocument, f.wf.State(user))
	assert.Contains(t, r.lastText(), "no longer available")
	assert.Empty(t, r.docs)
}

func TestTranslationFailureCleansUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.tr.failText = errors.New("quota exceeded")
	r := &fakeReplier{}
	const user = int64(10)

	_, err := f.wallet.Credit(ctx, user, 100)
	require.NoError(t, err)

	upload(t, f, user, r, 1000)
	require.NoError(t, f.wf.Approve(ctx, user, r))
	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "ES"))

	assert.Contains(t, r.lastText(), "Translation failed")
	assert.Empty(t, f.tempFiles(t), "failed attempts must still clean up")
	assert.Equal(t, state.StateIdle, f.wf.State(user))
	assert.Empty(t, r.docs)
}

func TestUnsupportedLanguageKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(11)

	_, err := f.wallet.Credit(ctx, user, 100)
	require.NoError(t, err)

	upload(t, f, user, r, 1000)
	require.NoError(t, f.wf.Approve(ctx, user, r))

	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "XX"))
	assert.Equal(t, StateAwaitingLanguageSelection, f.wf.State(user))

	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "FR"))
	assert.Equal(t, state.StateIdle, f.wf.State(user))
	assert.Len(t, r.docs, 1)
}

func TestDoubleLanguagePressTranslatesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(12)

	_, err := f.wallet.Credit(ctx, user, 100)
	require.NoError(t, err)

	upload(t, f, user, r, 1000)
	require.NoError(t, f.wf.Approve(ctx, user, r))

	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "FR"))
	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "DE"))

	assert.Len(t, r.docs, 1, "second press must not start another translation")
	assert.Equal(t, 1, f.tr.calls)
}

func TestDocumentModeSendsWholeFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{DocumentMode: true})
	r := &fakeReplier{}
	const user = int64(13)

	_, err := f.wallet.Credit(ctx, user, 100)
	require.NoError(t, err)

	upload(t, f, user, r, 1000)
	require.NoError(t, f.wf.Approve(ctx, user, r))
	require.NoError(t, f.wf.SelectLanguage(ctx, user, r, "IT"))

	require.Len(t, r.docs, 1)
	assert.Equal(t, 1, f.tr.calls)
	assert.Empty(t, f.tempFiles(t))
}

func TestTextWhileAwaitingDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	r := &fakeReplier{}
	const user = int64(14)

	require.NoError(t, f.wf.Start(ctx, user, r))
	require.NoError(t, f.wf.HandleText(ctx, user, r))

	assert.Equal(t, StateAwaitingDocument, f.wf.State(user))
	assert.Contains(t, r.lastText(), "attachment")
}
