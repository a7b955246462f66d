package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/BaSui01/rsimage/types"
)

// maxImageBytes caps a single download.
const maxImageBytes = 20 << 20

// Downloader fetches generated images by url.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader creates a downloader. A nil client uses http.DefaultClient.
func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{client: client, maxBytes: maxImageBytes}
}

// CleanURL trims whitespace and surrounding double quotes and requires an http(s) scheme.
func CleanURL(raw string) (string, error) {
	u := strings.Trim(strings.TrimSpace(raw), `"`)
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "", types.Errorf(types.ErrValidation, "bad image URL: %q", u)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return u, nil
	}
	return "", types.Errorf(types.ErrValidation, "bad image URL: %q", u)
}

// Fetch downloads url and returns the raw bytes.
// Auth headers are never sent; result urls usually point at a CDN.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := CleanURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrTransientTransport, "image download failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewError(types.ErrUpstreamError, "image download failed").
			WithHTTPStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", d.maxBytes)
	}
	if len(data) == 0 {
		return nil, types.NewError(types.ErrEmptyResponse, "downloaded image is empty")
	}
	return data, nil
}
