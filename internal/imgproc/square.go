package imgproc

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ratioTolerance is the relative aspect-ratio error below which a crop is a
// no-op.
const ratioTolerance = 0.01

// PadToSquare center-pads the image with transparent pixels to the larger of
// its two dimensions. Odd remainders are split between opposite sides. The
// image-edit vendor requires square input; CropToAspectRatio undoes this.
func PadToSquare(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	side := max(w, h)
	if w == h {
		return imaging.Clone(img)
	}
	canvas := imaging.New(side, side, image.Transparent)
	return imaging.Paste(canvas, img, image.Pt((side-w)/2, (side-h)/2))
}

// CropToAspectRatio center-crops to the target width/height ratio, reversing
// square padding. Images already within the tolerance pass through unchanged.
func CropToAspectRatio(img image.Image, targetRatio float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if targetRatio <= 0 || w == 0 || h == 0 {
		return imaging.Clone(img)
	}
	current := float64(w) / float64(h)
	if math.Abs(current-targetRatio)/targetRatio <= ratioTolerance {
		return imaging.Clone(img)
	}
	if current > targetRatio {
		w = int(math.Round(float64(h) * targetRatio))
	} else {
		h = int(math.Round(float64(w) / targetRatio))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return imaging.CropCenter(img, w, h)
}

// AspectRatio returns width over height.
func AspectRatio(img image.Image) float64 {
	b := img.Bounds()
	if b.Dy() == 0 {
		return 0
	}
	return float64(b.Dx()) / float64(b.Dy())
}
