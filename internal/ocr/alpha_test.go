package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func savePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func loadPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestFlattenAlphaRemovesAlphaChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgba.png")
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.Set(0, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	src.Set(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	savePNG(t, path, src)

	changed, err := FlattenAlpha(path)
	require.NoError(t, err)
	assert.True(t, changed)

	out := loadPNG(t, path)
	assert.False(t, HasAlpha(out), "flattened image decoded as %T", out)
	rgba, ok := out.(*image.RGBA)
	require.True(t, ok, "expected RGB truecolor, got %T", out)

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba.RGBAAt(1, 0), "transparent pixels become white")
	assert.Equal(t, 4, rgba.Bounds().Dx())
}

func TestFlattenAlphaLeavesOpaqueImagesAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gray.png")
	savePNG(t, path, image.NewGray(image.Rect(0, 0, 3, 3)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	changed, err := FlattenAlpha(path)
	require.NoError(t, err)
	assert.False(t, changed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFlattenAlphaDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := FlattenAlpha(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestHasAlpha(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range opaque.Pix {
		opaque.Pix[i] = 0xff
	}
	translucent := image.NewRGBA(image.Rect(0, 0, 2, 2))

	tests := []struct {
		name string
		img  image.Image
		want bool
	}{
		{"gray", image.NewGray(image.Rect(0, 0, 1, 1)), false},
		{"nrgba", image.NewNRGBA(image.Rect(0, 0, 1, 1)), true},
		{"opaque rgba", opaque, false},
		{"translucent rgba", translucent, true},
		{"ycbcr", image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio420), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAlpha(tt.img))
		})
	}
}

func TestFlattenAlphaKeepsOriginalWhenEncodingFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rgba.png")
	savePNG(t, path, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	orig := encodeImage
	encodeImage = func(w io.Writer, img image.Image, format imaging.Format, opts ...imaging.EncodeOption) error {
		w.Write([]byte("partial"))
		return errors.New("disk full")
	}
	defer func() { encodeImage = orig }()

	_, err = FlattenAlpha(path)
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is removed")
}
