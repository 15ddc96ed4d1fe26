package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// FrameWriter saves rendered frames as numbered PNG files.
type FrameWriter struct {
	Dir string
}

func NewFrameWriter(dir string) (*FrameWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FrameWriter{Dir: dir}, nil
}

func (w *FrameWriter) Path(frame int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("frame_%05d.png", frame))
}

func (w *FrameWriter) Write(frame int, img image.Image) (string, error) {
	path := w.Path(frame)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
