package imgproc

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var red = color.NRGBA{R: 255, A: 255}

func TestPadToSquareDimensions(t *testing.T) {
	padded := PadToSquare(solid(300, 200, red))
	b := padded.Bounds()
	if b.Dx() != 300 || b.Dy() != 300 {
		t.Fatalf("expected 300x300, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPadToSquarePaddingIsTransparentAndCentered(t *testing.T) {
	padded := PadToSquare(solid(300, 200, red))
	// 50 rows of padding above and below.
	if _, _, _, a := padded.At(150, 25).RGBA(); a != 0 {
		t.Fatalf("expected transparent top padding")
	}
	if _, _, _, a := padded.At(150, 275).RGBA(); a != 0 {
		t.Fatalf("expected transparent bottom padding")
	}
	if r, _, _, a := padded.At(150, 150).RGBA(); a == 0 || r == 0 {
		t.Fatalf("expected subject pixels in the center")
	}
}

func TestPadToSquareSplitsOddRemainder(t *testing.T) {
	padded := PadToSquare(solid(301, 200, red))
	b := padded.Bounds()
	if b.Dx() != 301 || b.Dy() != 301 {
		t.Fatalf("expected 301x301, got %dx%d", b.Dx(), b.Dy())
	}
	// (301-200)/2 = 50 rows above, 51 below.
	if _, _, _, a := padded.At(150, 49).RGBA(); a != 0 {
		t.Fatalf("row 49 should be padding")
	}
	if _, _, _, a := padded.At(150, 50).RGBA(); a == 0 {
		t.Fatalf("row 50 should be subject")
	}
	if _, _, _, a := padded.At(150, 249).RGBA(); a == 0 {
		t.Fatalf("row 249 should be subject")
	}
	if _, _, _, a := padded.At(150, 250).RGBA(); a != 0 {
		t.Fatalf("row 250 should be padding")
	}
}

func TestPadThenCropRoundTripPreservesAspectRatio(t *testing.T) {
	cases := []struct{ w, h int }{
		{300, 200},
		{200, 300},
		{301, 200},
		{1023, 767},
		{640, 640},
	}
	for _, tc := range cases {
		original := solid(tc.w, tc.h, red)
		wantRatio := AspectRatio(original)

		restored := CropToAspectRatio(PadToSquare(original), wantRatio)
		gotRatio := AspectRatio(restored)
		if math.Abs(gotRatio-wantRatio)/wantRatio > 0.01 {
			t.Fatalf("%dx%d: round-trip ratio %f deviates from %f by more than 1%%", tc.w, tc.h, gotRatio, wantRatio)
		}
	}
}

func TestCropToAspectRatioNoOpWithinTolerance(t *testing.T) {
	img := solid(300, 200, red)
	out := CropToAspectRatio(img, 1.5*1.005)
	b := out.Bounds()
	if b.Dx() != 300 || b.Dy() != 200 {
		t.Fatalf("expected no-op within tolerance, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCropToAspectRatioPortraitTarget(t *testing.T) {
	// Square input cropped back to a 2:3 portrait.
	out := CropToAspectRatio(solid(600, 600, red), 2.0/3.0)
	b := out.Bounds()
	got := float64(b.Dx()) / float64(b.Dy())
	if math.Abs(got-2.0/3.0) > 0.01 {
		t.Fatalf("expected ~0.667 ratio, got %f (%dx%d)", got, b.Dx(), b.Dy())
	}
}
