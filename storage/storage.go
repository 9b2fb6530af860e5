// Package storage saves product images to local disk or Firebase Storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const MaxImageWidth = 1200

var ErrUnsupportedImage = errors.New("unsupported image format, use JPG, PNG or GIF")

// Store persists an image and returns the URL clients should load it from.
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	// Delete removes a previously saved image by URL. URLs the store does
	// not own are ignored.
	Delete(ctx context.Context, url string) error
}

// PrepareImage decodes an upload, shrinks it to MaxImageWidth and
// re-encodes it as JPEG under a fresh unique name.
func PrepareImage(r io.Reader) (name string, data []byte, err error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", nil, ErrUnsupportedImage
	}

	if img.Bounds().Dx() > MaxImageWidth {
		img = resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", nil, fmt.Errorf("encode image: %w", err)
	}
	return uuid.NewString() + ".jpg", buf.Bytes(), nil
}
