package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"
)

const (
	ContentTypePNG = "image/png"

	// MaxPixels bounds what will be decoded. Headers are checked first, so a tiny
	// file declaring a huge canvas is refused before any pixel buffer exists.
	MaxPixels = 50_000_000
)

var (
	ErrInvalidImage = errors.New("media: invalid image")

	pngSignature = []byte("\x89PNG\r\n\x1a\n")
)

// ToPNG decodes any supported client format (png, jpeg, gif, webp) and re-encodes it
// as PNG. The output is rejected unless it starts with the PNG signature.
func ToPNG(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode header: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidImage, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode %s as png: %v", ErrInvalidImage, format, err)
	}

	out := buf.Bytes()
	if !IsPNG(out) {
		return nil, fmt.Errorf("%w: transcoded payload has no png signature", ErrInvalidImage)
	}
	return out, nil
}

func IsPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngSignature)
}

// Extension maps a content type to the file extension used in object names.
func Extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "png"
	}
}
