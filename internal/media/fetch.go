// Package media downloads remote attachments for outbound messages.
package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

const (
	defaultFilename = "image.png"
	defaultMimeType = "image/jpeg"
)

// Fetcher retrieves media by URL.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher with the given per-request timeout and body size limit.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads rawURL. Every failure wraps model.ErrMediaFetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Media, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported url %q", model.ErrMediaFetch, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMediaFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMediaFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", model.ErrMediaFetch, u.Host, resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", model.ErrMediaFetch, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", model.ErrMediaFetch, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", model.ErrMediaFetch)
	}

	return &model.Media{
		Data:     data,
		MimeType: mimeType(resp.Header.Get("Content-Type"), data),
		Filename: filename(u),
	}, nil
}

func mimeType(header string, data []byte) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	if sniffed := http.DetectContentType(data); sniffed != "application/octet-stream" {
		mt, _, _ := mime.ParseMediaType(sniffed)
		return mt
	}
	return defaultMimeType
}

func filename(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return defaultFilename
	}
	return name
}
