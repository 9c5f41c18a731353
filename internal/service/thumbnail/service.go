package thumbnail

import (
	"context"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"taskboard/pkg/metrics"
)

const (
	DefaultWidth  = 200
	DefaultHeight = 200
)

type Size struct {
	Width  int
	Height int
}

// Resizer produces a derived image at dst from the source at src.
type Resizer interface {
	Resize(ctx context.Context, src, dst string, size Size) error
}

type Service struct {
	defaultSize Size
	logger      *zap.Logger
}

func NewService(defaultSize Size, logger *zap.Logger) *Service {
	if defaultSize.Width == 0 {
		defaultSize.Width = DefaultWidth
	}
	if defaultSize.Height == 0 {
		defaultSize.Height = DefaultHeight
	}
	return &Service{
		defaultSize: defaultSize,
		logger:      logger,
	}
}

// Resize decodes the source image, crops it to a centered fill of the
// requested dimensions and writes the result to dst. I/O and codec errors
// propagate to the caller; the consumer decides the message's fate.
func (s *Service) Resize(_ context.Context, src, dst string, size Size) error {
	if size.Width == 0 || size.Height == 0 {
		size = s.defaultSize
	}

	start := time.Now()

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source image %s: %w", src, err)
	}

	resized := imaging.Fill(img, size.Width, size.Height, imaging.Center, imaging.Lanczos)

	if err := imaging.Save(resized, dst); err != nil {
		return fmt.Errorf("failed to save thumbnail %s: %w", dst, err)
	}

	metrics.RecordThumbnailResize(time.Since(start))
	s.logger.Info("Thumbnail generated",
		zap.String("src", src),
		zap.String("dst", dst),
		zap.Int("width", size.Width),
		zap.Int("height", size.Height),
	)
	return nil
}
