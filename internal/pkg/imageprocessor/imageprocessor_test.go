package imageprocessor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 120, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessAvatarCropsToSquare(t *testing.T) {
	res, err := Process(pngOf(t, 800, 400), AvatarSpec)
	require.NoError(t, err)
	assert.Equal(t, 256, res.Width)
	assert.Equal(t, 256, res.Height)
	assert.NotEmpty(t, res.WebP)

	decoded, err := jpeg.Decode(bytes.NewReader(res.JPEG))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())
}

func TestProcessCoverFitsWithoutUpscaling(t *testing.T) {
	res, err := Process(pngOf(t, 1200, 1200), CoverSpec)
	require.NoError(t, err)
	assert.Equal(t, 600, res.Width)
	assert.Equal(t, 600, res.Height)

	small, err := Process(pngOf(t, 100, 150), CoverSpec)
	require.NoError(t, err)
	assert.Equal(t, 100, small.Width)
	assert.Equal(t, 150, small.Height)
}

func TestProcessRejectsGarbage(t *testing.T) {
	_, err := Process([]byte("definitely not an image"), AvatarSpec)
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestApplyOrientation(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	assert.Equal(t, 2, applyOrientation(img, 6).Bounds().Dx())
	assert.Equal(t, 2, applyOrientation(img, 8).Bounds().Dx())
	assert.Equal(t, 4, applyOrientation(img, 3).Bounds().Dx())
	assert.Equal(t, 4, applyOrientation(img, 1).Bounds().Dx())
	assert.Equal(t, 1, readOrientation(pngOf(t, 2, 2)))
}

func TestStoreWritesBothVariants(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := Store(ctx, store, storage.FolderAvatars, bytes.NewReader(pngOf(t, 300, 300)), AvatarSpec)
	require.NoError(t, err)

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Exists(ctx, WebPKey(key))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPreferredKey(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(PreferredKey(c, "avatars/2024/03/a.jpg"))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "image/avif,image/webp,*/*")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "avatars/2024/03/a.webp", string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "avatars/2024/03/a.jpg", string(body))
}
