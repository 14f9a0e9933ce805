// Package report persists the final cross-company report as a markdown file.
package report

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultPath is used when no output path is configured.
const DefaultPath = "투자_최종_보고서.md"

// Writer writes report text to a single file, replacing earlier contents.
type Writer struct {
	path string
}

// NewWriter creates a Writer for path. An empty path selects DefaultPath.
func NewWriter(path string) *Writer {
	if path == "" {
		path = DefaultPath
	}
	return &Writer{path: path}
}

// Path returns the destination file.
func (w *Writer) Path() string { return w.path }

// Write stores text at the configured path through a temp file in the same
// directory, so readers never observe a partial report.
func (w *Writer) Write(text string) (string, error) {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.md")
	if err != nil {
		return "", eris.Wrap(err, "report: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "report: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "report: close temp file")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", eris.Wrap(err, "report: chmod")
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return "", eris.Wrapf(err, "report: rename to %s", w.path)
	}

	zap.L().Info("report: saved markdown", zap.String("path", w.path), zap.Int("bytes", len(text)))
	return w.path, nil
}
