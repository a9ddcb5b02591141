// Package artifacts keeps the screenshot and page source of a failed run.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kuitang/dms-e2e/internal/logutil"
	"github.com/kuitang/dms-e2e/internal/obs"
	"github.com/kuitang/dms-e2e/internal/s3client"
)

const (
	ScreenshotName = "screenshot.png"
	PageSourceName = "page.html"
)

// Store persists one artifact of a run and returns where it went.
type Store interface {
	Save(ctx context.Context, runID, name string, content []byte, contentType string) (string, error)
}

// Page is the part of a browser session artifacts are captured from.
type Page interface {
	Screenshot(ctx context.Context) ([]byte, error)
	PageSource(ctx context.Context) (string, error)
	URL() string
}

// Capture saves a screenshot and the page source of p. It never fails the
// caller: capture errors are logged and skipped. Returns saved locations.
func Capture(ctx context.Context, store Store, p Page, runID string) []string {
	if store == nil || p == nil {
		return nil
	}
	log := obs.From(ctx).With("pkg", "artifacts")

	var saved []string
	if png, err := p.Screenshot(ctx); err != nil {
		log.Warn("screenshot_failed", "error", err)
	} else if loc, err := store.Save(ctx, runID, ScreenshotName, png, "image/png"); err != nil {
		log.Warn("artifact_save_failed", "name", ScreenshotName, "error", err)
	} else {
		saved = append(saved, loc)
	}

	if src, err := p.PageSource(ctx); err != nil {
		log.Warn("page_source_failed", "error", err)
	} else {
		if loc, err := store.Save(ctx, runID, PageSourceName, []byte(src), "text/html; charset=utf-8"); err != nil {
			log.Warn("artifact_save_failed", "name", PageSourceName, "error", err)
		} else {
			saved = append(saved, loc)
		}
		log.Info("failure_page", "url", p.URL(), "text_preview", logutil.TextPreview(src, 300))
	}
	return saved
}

// FileStore writes artifacts under Dir/<runID>/.
type FileStore struct {
	Dir string
}

func (f FileStore) Save(_ context.Context, runID, name string, content []byte, _ string) (string, error) {
	dir := filepath.Join(f.Dir, sanitize(runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifacts: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, sanitize(name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %s: %w", path, err)
	}
	return path, nil
}

// S3Store uploads artifacts to Prefix/<runID>/ in an S3 bucket.
type S3Store struct {
	Client *s3client.Client
	Prefix string
}

// Key returns the object key used for an artifact.
func (s S3Store) Key(runID, name string) string {
	parts := []string{sanitize(runID), sanitize(name)}
	if p := strings.Trim(s.Prefix, "/"); p != "" {
		parts = append([]string{p}, parts...)
	}
	return strings.Join(parts, "/")
}

func (s S3Store) Save(ctx context.Context, runID, name string, content []byte, contentType string) (string, error) {
	key := s.Key(runID, name)
	if err := s.Client.PutObject(ctx, key, content, contentType); err != nil {
		return "", err
	}
	return s.Client.Location(key), nil
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" {
		return "unnamed"
	}
	return s
}
