package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxResponseBytes caps a JSON response body.
const maxResponseBytes = 8 << 20

// apiResponse is a raw upstream reply.
type apiResponse struct {
	Status int
	Raw    []byte
}

// apiCaller sends authenticated JSON requests to the configured base url.
type apiCaller struct {
	client *http.Client
	cfg    ProviderConfig
}

// call returns a transport error only when no HTTP response was received.
func (a *apiCaller) call(ctx context.Context, method, path string, payload any) (*apiResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, joinURL(a.cfg.BaseURL, path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if a.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
		req.Header.Set("X-API-KEY", a.cfg.Token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &apiResponse{Status: resp.StatusCode, Raw: raw}, nil
}

// joinURL keeps absolute paths untouched.
func joinURL(base, path string) string {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// upstreamMessage extracts a readable message from an error body.
func upstreamMessage(raw []byte, fallback string) string {
	if body, err := DecodeBody(raw); err == nil {
		return Message(body, fallback)
	}
	if s := strings.TrimSpace(strings.ToValidUTF8(string(raw), "")); s != "" {
		return truncateUTF8(s, maxMessageBytes)
	}
	return fallback
}

// maxMessageBytes caps a plain-text upstream message.
const maxMessageBytes = 200

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
