package preprocess

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

// toGray converts img to an 8-bit single channel image using the 0.299/0.587/0.114
// luma weights.
func toGray(img image.Image) *image.Gray {
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// otsuThreshold picks the level that maximizes the between-class variance of
// the histogram. ok is false when every pixel has the same value.
func otsuThreshold(gray *image.Gray) (level uint8, ok bool) {
	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}

	total := len(gray.Pix)
	if total == 0 {
		return 0, false
	}

	var sum float64
	distinct := 0
	for i, n := range hist {
		sum += float64(i) * float64(n)
		if n > 0 {
			distinct++
		}
	}
	if distinct < 2 {
		return 0, false
	}

	var (
		sumB    float64
		weightB int
		best    float64 = -1
	)
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])

		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			level = uint8(t)
		}
	}
	return level, true
}

// binarize maps pixels above level to white and everything else to black.
func binarize(gray *image.Gray, level uint8) {
	for i, v := range gray.Pix {
		if v > level {
			gray.Pix[i] = 0xff
		} else {
			gray.Pix[i] = 0
		}
	}
}

// medianFilter applies a size x size median filter with replicated borders.
func medianFilter(src *image.Gray, size int) *image.Gray {
	if size <= 1 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	r := size / 2
	window := make([]int, 0, size*size)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -r; dy <= r; dy++ {
				yy := clamp(y+dy, 0, h-1)
				row := src.Pix[yy*src.Stride:]
				for dx := -r; dx <= r; dx++ {
					window = append(window, int(row[clamp(x+dx, 0, w-1)]))
				}
			}
			sort.Ints(window)
			dst.Pix[y*dst.Stride+x] = uint8(window[len(window)/2])
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
