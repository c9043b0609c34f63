// Package imageprocessor normalises user avatars and book covers: EXIF
// orientation, resize, then a JPEG and a WebP variant.
package imageprocessor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
)

// MaxInputBytes bounds uploaded pictures.
const MaxInputBytes = 8 << 20

var ErrNotAnImage = errors.New("file is not a supported image")

// Spec describes the target geometry of a variant.
type Spec struct {
	Width  int
	Height int
	// Crop fills the box and crops the overflow; otherwise the image is fitted.
	Crop bool
}

var (
	AvatarSpec = Spec{Width: 256, Height: 256, Crop: true}
	CoverSpec  = Spec{Width: 600, Height: 900}
)

// Result holds the encoded variants.
type Result struct {
	JPEG   []byte
	WebP   []byte
	Width  int
	Height int
}

// Process decodes data, fixes orientation and encodes both variants.
func Process(data []byte, spec Spec) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	img = applyOrientation(img, readOrientation(data))

	if spec.Crop {
		img = imaging.Fill(img, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
	} else {
		b := img.Bounds()
		if b.Dx() > spec.Width || b.Dy() > spec.Height {
			img = imaging.Fit(img, spec.Width, spec.Height, imaging.Lanczos)
		}
	}

	var jpg bytes.Buffer
	if err := imaging.Encode(&jpg, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("error encoding JPEG image: %w", err)
	}

	var wp bytes.Buffer
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, 85)
	if err != nil {
		return nil, fmt.Errorf("error creating encoder options: %w", err)
	}
	if err := webp.Encode(&wp, img, options); err != nil {
		return nil, fmt.Errorf("error encoding WebP image: %w", err)
	}

	b := img.Bounds()
	return &Result{JPEG: jpg.Bytes(), WebP: wp.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// WebPKey is the key of the WebP sibling of a stored JPEG variant.
func WebPKey(jpegKey string) string {
	return strings.TrimSuffix(jpegKey, ".jpg") + ".webp"
}

// Store processes an upload and writes both variants, returning the JPEG key.
func Store(ctx context.Context, store storage.Store, folder string, r io.Reader, spec Spec) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxInputBytes {
		return "", fmt.Errorf("image larger than %d bytes", MaxInputBytes)
	}

	res, err := Process(data, spec)
	if err != nil {
		return "", err
	}

	key := storage.NewKey(folder, ".jpg", time.Now())
	if err := store.Put(ctx, key, bytes.NewReader(res.JPEG), int64(len(res.JPEG)), "image/jpeg"); err != nil {
		return "", err
	}
	if err := store.Put(ctx, WebPKey(key), bytes.NewReader(res.WebP), int64(len(res.WebP)), "image/webp"); err != nil {
		log.Warnf("[ImageProcessor] WebP variant for %s not stored: %v", key, err)
	}
	log.Infof("[ImageProcessor] Stored %s (%dx%d)", key, res.Width, res.Height)
	return key, nil
}
