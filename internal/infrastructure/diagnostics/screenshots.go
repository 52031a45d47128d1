// Package diagnostics keeps evidence of failed tasks for later selector debugging.
package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

var _ output.FailureRecorder = (*ScreenshotRecorder)(nil)

const maxWidth = 1024

type ScreenshotRecorder struct {
	fs  afero.Fs
	dir string
}

func NewScreenshotRecorder(fsys afero.Fs, dir string) *ScreenshotRecorder {
	return &ScreenshotRecorder{fs: fsys, dir: dir}
}

// Record downsizes the capture to at most 1024px wide and writes it as JPEG.
// It returns the written path.
func (r *ScreenshotRecorder) Record(ctx context.Context, capture entity.FailureCapture) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(capture.Image.Data))
	if err != nil {
		return "", fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return "", fmt.Errorf("jpeg encode failed: %w", err)
	}

	if err := r.fs.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	name := fmt.Sprintf("%s_w%d_%s.jpg",
		capture.TakenAt.Format("20060102-150405"), capture.WorkerID, safeName(capture.TaskID))
	path := filepath.Join(r.dir, name)
	if err := afero.WriteFile(r.fs, path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "task"
	}
	return s
}
