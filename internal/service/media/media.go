package media

import (
	"bytes"
	"errors"
	"fmt"
	stdimage "image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/config"
	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/chat"
)

var (
	ErrUnsupportedType = errors.New("only jpg and png images are supported")
	ErrTooLarge        = errors.New("image exceeds the upload size limit")
	ErrEmpty           = errors.New("image is empty")
)

// Processor validates uploads and shrinks oversized images before they are stored and sent upstream.
type Processor struct {
	maxBytes     int64
	maxDimension int
	maxPixels    int64
}

// NewProcessor returns a Processor using the configured limits.
func NewProcessor(cfg config.ImageConfig) *Processor {
	return &Processor{maxBytes: cfg.MaxBytes, maxDimension: cfg.MaxDimension, maxPixels: cfg.MaxPixels}
}

// MaxBytes is the accepted upload size.
func (p *Processor) MaxBytes() int64 {
	return p.maxBytes
}

// Process sniffs the content type, rejects anything but jpeg/png and downscales
// images whose longest side exceeds the configured dimension.
func (p *Processor) Process(data []byte) (*chat.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	mimeType := http.DetectContentType(data)
	if mimeType != "image/jpeg" && mimeType != "image/png" {
		return nil, ErrUnsupportedType
	}

	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	// A few hundred KB of compressed png can expand to gigabytes once decoded.
	if p.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return nil, ErrTooLarge
	}

	if p.maxDimension <= 0 || (cfg.Width <= p.maxDimension && cfg.Height <= p.maxDimension) {
		return &chat.Image{MIMEType: mimeType, Data: data}, nil
	}

	scaled, err := p.downscale(data, mimeType, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	return &chat.Image{MIMEType: mimeType, Data: scaled}, nil
}

func (p *Processor) downscale(data []byte, mimeType string, width, height int) ([]byte, error) {
	src, _, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	w, h := fitWithin(width, height, p.maxDimension)
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales width x height so the longest side equals limit, keeping the aspect ratio.
func fitWithin(width, height, limit int) (int, int) {
	if width >= height {
		h := height * limit / width
		if h < 1 {
			h = 1
		}
		return limit, h
	}
	w := width * limit / height
	if w < 1 {
		w = 1
	}
	return w, limit
}
