package ocr

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var encodeImage = imaging.Encode

// HasAlpha reports whether img carries a meaningful alpha channel.
// Images whose model supports transparency but whose pixels are all opaque
// are treated as opaque.
func HasAlpha(img image.Image) bool {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16, *image.YCbCr, *image.CMYK:
		return false
	case *image.NRGBA, *image.NRGBA64, *image.Alpha, *image.Alpha16, *image.NYCbCrA:
		return true
	case *image.RGBA:
		return !m.Opaque()
	case *image.RGBA64:
		return !m.Opaque()
	case *image.Paletted:
		return !m.Opaque()
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

// Flatten composites img over an opaque white background.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// FlattenAlpha rewrites the image at path without its alpha channel. It
// reports whether the file was changed; opaque inputs are left untouched.
func FlattenAlpha(path string) (bool, error) {
	const op = "FlattenAlpha"

	f, err := os.Open(path)
	if err != nil {
		return false, NewOCRError("", op, err, path)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return false, NewOCRError("", op, fmt.Errorf("%w: %v", ErrDecode, err), path)
	}

	if !HasAlpha(img) {
		return false, nil
	}

	flat := Flatten(img)

	saveFormat, err := imaging.FormatFromFilename(path)
	if err != nil {
		// Keep the detected container when the extension is unusual.
		saveFormat, err = imaging.FormatFromExtension(format)
		if err != nil {
			saveFormat = imaging.PNG
		}
	}

	// A failed encode must leave the input intact: write beside it, then rename.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".flatten-*"+filepath.Ext(path))
	if err != nil {
		return false, NewOCRError("", op, err, path)
	}
	tmpPath := tmp.Name()
	if err := encodeImage(tmp, flat, saveFormat); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return false, NewOCRError("", op, err, path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return false, NewOCRError("", op, err, path)
	}
	if info, err := os.Stat(path); err == nil {
		os.Chmod(tmpPath, info.Mode().Perm())
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return false, NewOCRError("", op, err, path)
	}
	return true, nil
}
