package deepl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/translate", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "DE", r.PostForm.Get("target_lang"))
		assert.Equal(t, "Hello", r.PostForm.Get("text"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Hallo"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL})
	out, err := c.TranslateText(context.Background(), "Hello", "de")
	require.NoError(t, err)
	assert.Equal(t, "Hallo", out)
}

func TestTranslateTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid auth key"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.TranslateText(context.Background(), "Hello", "de")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "invalid auth key", apiErr.Message)
	assert.Equal(t, "DEEPL_HTTP_403", apiErr.Code())
	assert.False(t, apiErr.Retryable())
}

func TestAPIErrorRetryable(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 429}).Retryable())
	assert.True(t, (&APIError{StatusCode: 503}).Retryable())
	assert.False(t, (&APIError{StatusCode: 400}).Retryable())
}

func TestHostSelectionByKeySuffix(t *testing.T) {
	free := NewClient(Config{APIKey: "abc:fx"})
	assert.Equal(t, hostFree, free.baseURL)

	paid := NewClient(Config{APIKey: "abc"})
	assert.Equal(t, hostPaid, paid.baseURL)

	override := NewClient(Config{APIKey: "abc:fx", BaseURL: "http://localhost:9999/"})
	assert.Equal(t, "http://localhost:9999", override.baseURL)
}

func TestTranslateDocumentFlow(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/document":
			require.NoError(t, r.ParseMultipartForm(1 << 20))
			assert.Equal(t, "FR", r.MultipartForm.Value["target_lang"][0])
			_, _ = w.Write([]byte(`{"document_id":"doc1","document_key":"key1"}`))
		case "/v2/document/doc1":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "key1", r.PostForm.Get("document_key"))
			if polls.Add(1) < 2 {
				_, _ = w.Write([]byte(`{"status":"translating","seconds_remaining":1}`))
			} else {
				_, _ = w.Write([]byte(`{"status":"done"}`))
			}
		case "/v2/document/doc1/result":
			_, _ = w.Write([]byte("bonjour le monde"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello world"), 0o644))
	out := filepath.Join(dir, "out.txt")

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, PollInterval: time.Millisecond})
	require.NoError(t, c.TranslateDocument(context.Background(), in, out, "fr"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "bonjour le monde", string(data))
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestTranslateDocumentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/document":
			_, _ = w.Write([]byte(`{"document_id":"doc1","document_key":"key1"}`))
		case "/v2/document/doc1":
			_, _ = w.Write([]byte(`{"status":"error","error_message":"source language not detected"}`))
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("???"), 0o644))

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, PollInterval: time.Millisecond})
	err := c.TranslateDocument(context.Background(), in, filepath.Join(dir, "out.txt"), "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source language not detected")
}

func TestTranslateDocumentContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/document":
			_, _ = w.Write([]byte(`{"document_id":"doc1","document_key":"key1"}`))
		case "/v2/document/doc1":
			_, _ = w.Write([]byte(`{"status":"translating","seconds_remaining":60}`))
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, PollInterval: 5 * time.Millisecond})
	err := c.TranslateDocument(ctx, in, filepath.Join(dir, "out.txt"), "fr")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
