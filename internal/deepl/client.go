// Package deepl is a small client for the DeepL translation API covering
// text translation and the asynchronous document endpoint.
package deepl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	hostPaid = "https://api.deepl.com"
	hostFree = "https://api-free.deepl.com"

	defaultPollInterval = 2 * time.Second
	maxPollInterval     = 10 * time.Second
)

// APIError is a non-2xx response from DeepL.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("deepl: http %d: %s", e.StatusCode, e.Message)
}

// Code returns a stable identifier for log correlation.
func (e *APIError) Code() string {
	return fmt.Sprintf("DEEPL_HTTP_%d", e.StatusCode)
}

// Retryable reports whether the request may succeed on retry.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds client settings.
type Config struct {
	// APIKey authenticates requests. Keys issued for the free tier end
	// with ":fx" and are routed to the free host automatically.
	APIKey string
	// BaseURL overrides host selection, used in tests.
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// PollInterval is the initial delay between document status checks.
	PollInterval time.Duration
}

// Client talks to the DeepL API.
type Client struct {
	apiKey       string
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

// NewClient builds a Client from Config.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = hostPaid
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			base = hostFree
		}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      base,
		http:         httpClient,
		pollInterval: interval,
	}
}

type textResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// TranslateText translates plain text into the target language.
func (c *Client) TranslateText(ctx context.Context, text, targetLang string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(targetLang))

	body, err := c.postForm(ctx, "/v2/translate", form)
	if err != nil {
		return "", err
	}

	var resp textResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("deepl: decode translate response: %w", err)
	}
	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("deepl: empty translate response")
	}

	var out strings.Builder
	for i, tr := range resp.Translations {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(tr.Text)
	}
	return out.String(), nil
}

type documentHandle struct {
	DocumentID  string `json:"document_id"`
	DocumentKey string `json:"document_key"`
}

type documentStatus struct {
	Status           string `json:"status"`
	SecondsRemaining int    `json:"seconds_remaining"`
	ErrorMessage     string `json:"error_message"`
}

// TranslateDocument uploads a file, waits for DeepL to translate it, and
// writes the result to outPath. The call blocks until done, failed, or the
// context expires.
func (c *Client) TranslateDocument(ctx context.Context, inPath, outPath, targetLang string) error {
	handle, err := c.uploadDocument(ctx, inPath, targetLang)
	if err != nil {
		return err
	}

	interval := c.pollInterval
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		st, err := c.documentStatus(ctx, handle)
		if err != nil {
			return err
		}
		switch st.Status {
		case "done":
			return c.downloadDocument(ctx, handle, outPath)
		case "error":
			msg := st.ErrorMessage
			if msg == "" {
				msg = "translation failed"
			}
			return fmt.Errorf("deepl: document translation: %s", msg)
		}

		if interval < maxPollInterval {
			interval *= 2
			if interval > maxPollInterval {
				interval = maxPollInterval
			}
		}
	}
}

func (c *Client) uploadDocument(ctx context.Context, path, targetLang string) (documentHandle, error) {
	var handle documentHandle

	f, err := os.Open(path)
	if err != nil {
		return handle, fmt.Errorf("deepl: open document: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("target_lang", strings.ToUpper(targetLang)); err != nil {
		return handle, fmt.Errorf("deepl: build upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return handle, fmt.Errorf("deepl: build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return handle, fmt.Errorf("deepl: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return handle, fmt.Errorf("deepl: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/document", &buf)
	if err != nil {
		return handle, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return handle, err
	}
	if err := json.Unmarshal(body, &handle); err != nil {
		return handle, fmt.Errorf("deepl: decode upload response: %w", err)
	}
	if handle.DocumentID == "" || handle.DocumentKey == "" {
		return handle, fmt.Errorf("deepl: incomplete upload response")
	}
	return handle, nil
}

func (c *Client) documentStatus(ctx context.Context, h documentHandle) (documentStatus, error) {
	var st documentStatus

	form := url.Values{}
	form.Set("document_key", h.DocumentKey)
	body, err := c.postForm(ctx, "/v2/document/"+h.DocumentID, form)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return st, fmt.Errorf("deepl: decode status response: %w", err)
	}
	return st, nil
}

func (c *Client) downloadDocument(ctx context.Context, h documentHandle, outPath string) error {
	form := url.Values{}
	form.Set("document_key", h.DocumentKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/document/"+h.DocumentID+"/result",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deepl: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("deepl: create result file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(outPath)
		return fmt.Errorf("deepl: write result file: %w", err)
	}
	return out.Close()
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepl: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepl: read response: %w", err)
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))
	var decoded struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &decoded) == nil && decoded.Message != "" {
		msg = decoded.Message
	}
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
