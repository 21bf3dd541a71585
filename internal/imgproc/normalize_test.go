package imgproc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"

	"atelier/internal/domain"
)

func noisy(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func encode(t *testing.T, img image.Image, format imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestProcessForUploadKeepsSmallImages(t *testing.T) {
	in := encode(t, noisy(100, 80, 1), imaging.JPEG)
	out, err := ProcessForUpload(in, Options{})
	if err != nil {
		t.Fatalf("ProcessForUpload: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 100 || h != 80 {
		t.Fatalf("small image must not be rescaled, got %dx%d", w, h)
	}
	if !bytes.HasPrefix(out, []byte("\x89PNG")) {
		t.Fatalf("output must be PNG")
	}
}

func TestProcessForUploadResizesOversized(t *testing.T) {
	in := encode(t, noisy(600, 300, 2), imaging.JPEG)
	out, err := ProcessForUpload(in, Options{MaxEdge: 300})
	if err != nil {
		t.Fatalf("ProcessForUpload: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 300 || h != 150 {
		t.Fatalf("expected fit inside 300 preserving aspect, got %dx%d", w, h)
	}
}

func TestProcessForUploadForcesAlpha(t *testing.T) {
	in := encode(t, noisy(64, 64, 3), imaging.JPEG)
	out, err := ProcessForUpload(in, Options{})
	if err != nil {
		t.Fatalf("ProcessForUpload: %v", err)
	}
	// IHDR color type lives at byte 25: signature (8) + chunk length and
	// type (8) + width, height and bit depth (9). Type 6 is truecolor
	// with alpha; the stdlib encoder would demote an opaque image to 2.
	if len(out) < 26 {
		t.Fatalf("output too short for a PNG header: %d bytes", len(out))
	}
	if out[25] != 6 {
		t.Fatalf("expected truecolor-with-alpha color type, got %d", out[25])
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := img.(*image.NRGBA); !ok {
		t.Fatalf("expected NRGBA output, got %T", img)
	}
}

func TestProcessForUploadShrinksUnderByteCeiling(t *testing.T) {
	in := encode(t, noisy(512, 512, 4), imaging.PNG)
	out, err := ProcessForUpload(in, Options{MaxBytes: 64 << 10, FallbackEdge: 32})
	if err != nil {
		t.Fatalf("ProcessForUpload: %v", err)
	}
	if len(out) > 64<<10 {
		t.Fatalf("output exceeds ceiling: %d bytes", len(out))
	}
	w, h := decodeDims(t, out)
	if w > 512 || h > 512 {
		t.Fatalf("shrinking must never upscale, got %dx%d", w, h)
	}
}

func TestProcessForUploadUndersizable(t *testing.T) {
	in := encode(t, noisy(512, 512, 5), imaging.PNG)
	// No PNG fits in 16 bytes; the fallback cannot save this.
	_, err := ProcessForUpload(in, Options{MaxBytes: 16})
	if !errors.Is(err, domain.ErrUndersizable) {
		t.Fatalf("expected ErrUndersizable, got %v", err)
	}
}

func TestProcessForUploadRejectsGarbage(t *testing.T) {
	if _, err := ProcessForUpload([]byte("garbage"), Options{}); err == nil {
		t.Fatalf("expected decode error")
	}
}
