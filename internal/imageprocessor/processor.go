package imageprocessor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// ImageSize represents different image sizes
type ImageSize struct {
	Name   string
	Width  int
	Height int
}

var (
	// Predefined image sizes
	SizeThumbnail = ImageSize{Name: "thumbnail", Width: 150, Height: 150}
	SizeSmall     = ImageSize{Name: "small", Width: 400, Height: 400}
)

// DefaultVariants are rendered for every stored upload.
var DefaultVariants = []ImageSize{SizeThumbnail, SizeSmall}

// Variant is one rendered size of an image.
type Variant struct {
	Name     string
	Path     string
	MIMEType string
	Width    int
	Height   int
	Data     []byte
}

// Processor handles image processing operations
type Processor struct {
	quality int // JPEG quality (1-100)
}

// NewProcessor creates a new image processor
func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85 // Default quality
	}
	return &Processor{
		quality: quality,
	}
}

// Variants renders every size in parallel. Paths are derived from key as
// <name>_<variant><ext>. Sizes not yet started when ctx is cancelled are
// skipped and the context error is returned.
func (p *Processor) Variants(ctx context.Context, key string, data []byte, sizes []ImageSize) ([]Variant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := make([]Variant, len(sizes))
	g, gctx := errgroup.WithContext(ctx)
	for i, size := range sizes {
		i, size := i, size
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resized := p.resize(src, size.Width, size.Height)
			encoded, mimeType, err := p.encode(resized, format)
			if err != nil {
				return fmt.Errorf("variant %s: %w", size.Name, err)
			}
			b := resized.Bounds()
			out[i] = Variant{
				Name:     size.Name,
				Path:     VariantPath(key, size.Name, mimeType),
				MIMEType: mimeType,
				Width:    b.Dx(),
				Height:   b.Dy(),
				Data:     encoded,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// VariantPath builds the storage key of a rendered size.
func VariantPath(key, variant, mimeType string) string {
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	switch mimeType {
	case "image/jpeg":
		if !strings.EqualFold(ext, ".jpg") && !strings.EqualFold(ext, ".jpeg") {
			ext = ".jpg"
		}
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	}
	return fmt.Sprintf("%s_%s%s", base, variant, ext)
}

func (p *Processor) encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
			return nil, "", fmt.Errorf("failed to encode JPEG: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	case "png", "webp":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, "", fmt.Errorf("failed to encode GIF: %w", err)
		}
		return buf.Bytes(), "image/gif", nil
	default:
		return nil, "", fmt.Errorf("unsupported image format: %s", format)
	}
}

// resize scales an image to fit inside the box, keeping its aspect ratio.
// Images already inside the box are not enlarged.
func (p *Processor) resize(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxWidth && height <= maxHeight {
		maxWidth, maxHeight = width, height
	}

	ratio := float64(width) / float64(height)
	newWidth := maxWidth
	newHeight := maxHeight

	if float64(maxWidth)/float64(maxHeight) > ratio {
		newWidth = int(float64(maxHeight) * ratio)
	} else {
		newHeight = int(float64(maxWidth) / ratio)
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}

// GetImageDimensions reads only the header to report width and height.
func GetImageDimensions(reader io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
