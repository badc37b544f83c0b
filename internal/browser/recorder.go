package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/tickrenew/internal/logger"
)

// Recorder writes checkpoint screenshots for operators. Files are overwritten
// on every run and never read back.
type Recorder struct {
	dir    string
	logger logger.Logger
}

// NewRecorder creates a recorder writing into dir.
func NewRecorder(dir string, log logger.Logger) *Recorder {
	if dir == "" {
		dir = "."
	}
	return &Recorder{dir: dir, logger: log}
}

// Capture saves a screenshot of page as name. Failures are logged, not returned:
// a missing screenshot never changes the outcome of a run.
func (r *Recorder) Capture(ctx context.Context, page Page, name string) {
	path, err := r.capture(ctx, page, name)
	if err != nil {
		r.logger.Warn("failed to capture screenshot",
			logger.String("name", name),
			logger.Error(err))
		return
	}
	r.logger.Debug("screenshot saved", logger.String("path", path))
}

func (r *Recorder) capture(ctx context.Context, page Page, name string) (string, error) {
	if page == nil {
		return "", fmt.Errorf("no page")
	}
	data, err := page.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("take screenshot: %w", err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}
