// Package imaging wraps the sampling and cropping file transforms the
// export pipeline depends on. Both are deterministic: same input file
// and geometry, same output file.
package imaging

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	img "github.com/disintegration/imaging"

	"github.com/framecut/framecut-agent/internal/crop"
)

// Size is a target pixel size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Scaled divides a size by a zoom scale, rounding to nearest integer
// dimensions. The export pipeline samples at preferred/scale so that
// cropping at that scale yields the desired output resolution.
func (s Size) Scaled(scale float64) Size {
	return Size{
		Width:  int(math.Round(float64(s.Width) / scale)),
		Height: int(math.Round(float64(s.Height) / scale)),
	}
}

// Sampler produces a resized working copy of a source image file.
type Sampler interface {
	Sample(ctx context.Context, srcPath string, target Size) (string, error)
}

// Cropper cuts a normalized rectangle out of a sampled file,
// producing the final output.
type Cropper interface {
	Crop(ctx context.Context, srcPath string, area crop.Area) (string, error)
}

// FileTransformer implements Sampler and Cropper on disk, writing
// outputs into a fixed directory.
type FileTransformer struct {
	outDir string
	logger *slog.Logger
}

// NewFileTransformer creates the output directory and returns a
// transformer writing into it.
func NewFileTransformer(outDir string, logger *slog.Logger) (*FileTransformer, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create output dir: %w", err)
	}
	return &FileTransformer{outDir: outDir, logger: logger}, nil
}

// OutDir returns the directory outputs are written to.
func (t *FileTransformer) OutDir() string {
	return t.outDir
}

// Sample decodes srcPath, resizes it to fit within target while
// preserving aspect ratio, and writes the working copy.
func (t *FileTransformer) Sample(ctx context.Context, srcPath string, target Size) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if target.Width <= 0 || target.Height <= 0 {
		return "", fmt.Errorf("invalid sample target %dx%d", target.Width, target.Height)
	}

	src, err := img.Open(srcPath, img.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("cannot decode %s: %w", filepath.Base(srcPath), err)
	}

	sampled := img.Fit(src, target.Width, target.Height, img.Lanczos)
	outPath := t.outputPath(srcPath, "sample")
	if err := img.Save(sampled, outPath); err != nil {
		return "", fmt.Errorf("cannot write sample: %w", err)
	}

	if t.logger != nil {
		t.logger.Debug("sampled image",
			"src", filepath.Base(srcPath),
			"target_w", target.Width,
			"target_h", target.Height,
			"out", filepath.Base(outPath),
		)
	}
	return outPath, nil
}

// Crop cuts the normalized area out of srcPath and writes the result.
func (t *FileTransformer) Crop(ctx context.Context, srcPath string, area crop.Area) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := area.Validate(); err != nil {
		return "", err
	}

	src, err := img.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("cannot decode %s: %w", filepath.Base(srcPath), err)
	}

	bounds := src.Bounds()
	rect := image.Rect(
		bounds.Min.X+int(math.Round(area.Left*float64(bounds.Dx()))),
		bounds.Min.Y+int(math.Round(area.Top*float64(bounds.Dy()))),
		bounds.Min.X+int(math.Round((area.Left+area.Width)*float64(bounds.Dx()))),
		bounds.Min.Y+int(math.Round((area.Top+area.Height)*float64(bounds.Dy()))),
	)

	cropped := img.Crop(src, rect)
	outPath := t.outputPath(srcPath, "crop")
	if err := img.Save(cropped, outPath); err != nil {
		return "", fmt.Errorf("cannot write crop: %w", err)
	}

	if t.logger != nil {
		t.logger.Debug("cropped image",
			"src", filepath.Base(srcPath),
			"rect", rect.String(),
			"out", filepath.Base(outPath),
		)
	}
	return outPath, nil
}

// outputPath derives a deterministic output name: <base>.<stage>.<ext>
// under the output dir. Unknown extensions fall back to jpg so Save
// can always pick an encoder.
func (t *FileTransformer) outputPath(srcPath, stage string) string {
	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	// Strip a previous stage suffix so crops of samples do not stack
	// names indefinitely.
	name = strings.TrimSuffix(name, ".sample")

	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff", ".bmp":
	default:
		ext = ".jpg"
	}
	return filepath.Join(t.outDir, fmt.Sprintf("%s.%s%s", name, stage, ext))
}
