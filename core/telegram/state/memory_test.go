package state

import (
	"sync"
	"testing"
)

func TestMemoryManagerDefaults(t *testing.T) {
	m := NewMemoryManager()

	if got := m.GetState(42); got != StateIdle {
		t.Fatalf("GetState for unknown user = %q, want %q", got, StateIdle)
	}
	if m.HasState(42) {
		t.Fatal("HasState should be false for unknown user")
	}
	if _, ok := m.GetTemp(42, "doc"); ok {
		t.Fatal("GetTemp should report missing key for unknown user")
	}
}

func TestMemoryManagerStateLifecycle(t *testing.T) {
	m := NewMemoryManager()
	const user = int64(7)

	m.SetState(user, State("awaiting_document"))
	if !m.InProgress(user) {
		t.Fatal("InProgress should be true after SetState")
	}

	m.SetTemp(user, "chars", int64(50000))
	if v, ok := m.GetTempInt64(user, "chars"); !ok || v != 50000 {
		t.Fatalf("GetTempInt64 = (%d, %v), want (50000, true)", v, ok)
	}

	m.SetTemp(user, "path", "/tmp/doc.pdf")
	if v, ok := m.GetTempString(user, "path"); !ok || v != "/tmp/doc.pdf" {
		t.Fatalf("GetTempString = (%q, %v)", v, ok)
	}
	if _, ok := m.GetTempString(user, "chars"); ok {
		t.Fatal("GetTempString should reject non-string value")
	}

	m.ClearState(user)
	if m.HasState(user) {
		t.Fatal("HasState should be false after ClearState")
	}
	if _, ok := m.GetTempInt64(user, "chars"); !ok {
		t.Fatal("ClearState should keep temp data")
	}

	m.Clear(user)
	if _, ok := m.GetTemp(user, "chars"); ok {
		t.Fatal("Clear should drop temp data")
	}
}

func TestCompareAndSwapState(t *testing.T) {
	m := NewMemoryManager()
	const user = int64(9)

	m.SetState(user, State("awaiting_payment_approval"))

	if !m.CompareAndSwapState(user, State("awaiting_payment_approval"), State("awaiting_language_selection")) {
		t.Fatal("first swap should succeed")
	}
	if m.CompareAndSwapState(user, State("awaiting_payment_approval"), State("awaiting_language_selection")) {
		t.Fatal("second swap from the same state should fail")
	}
	if got := m.GetState(user); got != State("awaiting_language_selection") {
		t.Fatalf("state after swap = %q", got)
	}
}

func TestCompareAndSwapStateConcurrent(t *testing.T) {
	m := NewMemoryManager()
	const user = int64(11)
	m.SetState(user, State("awaiting_payment_approval"))

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.CompareAndSwapState(user, State("awaiting_payment_approval"), State("awaiting_language_selection")) {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var won int
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("exactly one swap should win, got %d", won)
	}
}

func TestCompareAndSwapStateUnknownUser(t *testing.T) {
	m := NewMemoryManager()

	if m.CompareAndSwapState(99, State("translating"), StateIdle) {
		t.Fatal("swap from non-idle state should fail for unknown user")
	}
	if !m.CompareAndSwapState(99, StateIdle, State("awaiting_document")) {
		t.Fatal("swap from idle should succeed for unknown user")
	}
}
