// Package csvsource loads the question pool from a published spreadsheet CSV export.
package csvsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"knowledge-quiz-service/internal/domain"
	"knowledge-quiz-service/internal/ingest"
)

// DefaultTimeout bounds a single CSV fetch.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of the export is read.
const maxBody = 16 << 20

// HTTPLoader fetches the CSV over HTTP on every call; caching belongs to the pool
// repository in front of it.
type HTTPLoader struct {
	url    string
	client *http.Client
}

func NewHTTPLoader(url string, timeout time.Duration) *HTTPLoader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPLoader{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (l *HTTPLoader) LoadPool(ctx context.Context) ([]domain.Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrDataLoad, err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrDataLoad, l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: fetch %s: status %d", domain.ErrDataLoad, l.url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrDataLoad, l.url, err)
	}
	return ingest.ParsePool(string(body)), nil
}

// FileLoader reads the CSV from a local file.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) LoadPool(_ context.Context) ([]domain.Question, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataLoad, err)
	}
	return ingest.ParsePool(string(raw)), nil
}
