// Package imgproc converts uploaded and generated images into the forms the
// try-on and image-edit vendors accept, and reverses those transforms so the
// round trip preserves the subject's original aspect ratio.
package imgproc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"atelier/internal/domain"
)

// Options bounds the normalization pass. Zero values take the defaults below.
type Options struct {
	// MaxEdge is the largest long edge allowed before resizing.
	MaxEdge int
	// MaxBytes is the encoded-size ceiling the vendor accepts.
	MaxBytes int
	// ShrinkFactor is applied to the target dimension per oversize attempt.
	ShrinkFactor float64
	// MaxAttempts bounds the shrink loop before the fixed fallback kicks in.
	MaxAttempts int
	// FallbackEdge is the last-resort dimension when shrinking was not enough.
	FallbackEdge int
}

const (
	defaultMaxEdge      = 2048
	defaultMaxBytes     = 4 << 20
	defaultShrinkFactor = 0.85
	defaultMaxAttempts  = 6
	defaultFallbackEdge = 768
)

func (o Options) withDefaults() Options {
	if o.MaxEdge <= 0 {
		o.MaxEdge = defaultMaxEdge
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if o.ShrinkFactor <= 0 || o.ShrinkFactor >= 1 {
		o.ShrinkFactor = defaultShrinkFactor
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.FallbackEdge <= 0 {
		o.FallbackEdge = defaultFallbackEdge
	}
	return o
}

// ProcessForUpload normalizes an arbitrary uploaded image for the vendors:
// auto-rotated per orientation metadata, resized to fit inside MaxEdge (never
// upscaled), forced to an alpha channel and re-encoded as PNG. Images whose
// encoding still exceeds MaxBytes are shrunk by ShrinkFactor per attempt,
// then dropped to FallbackEdge; if that is still too large the image is
// rejected with ErrUndersizable.
func ProcessForUpload(data []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	decoded, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imgproc: decode upload: %w", err)
	}

	// Clone always yields NRGBA, which forces the alpha channel.
	img := imaging.Clone(decoded)
	if longEdge(img) > opts.MaxEdge {
		img = imaging.Fit(img, opts.MaxEdge, opts.MaxEdge, imaging.Lanczos)
	}

	encoded, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	if len(encoded) <= opts.MaxBytes {
		return encoded, nil
	}

	target := longEdge(img)
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		target = int(math.Floor(float64(target) * opts.ShrinkFactor))
		if target < 1 {
			break
		}
		shrunk := imaging.Fit(img, target, target, imaging.Lanczos)
		encoded, err = encodePNG(shrunk)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= opts.MaxBytes {
			return encoded, nil
		}
	}

	fallback := imaging.Fit(img, opts.FallbackEdge, opts.FallbackEdge, imaging.Lanczos)
	encoded, err = encodePNG(fallback)
	if err != nil {
		return nil, err
	}
	if len(encoded) <= opts.MaxBytes {
		return encoded, nil
	}
	return nil, fmt.Errorf("imgproc: %w (still %d bytes after fallback)", domain.ErrUndersizable, len(encoded))
}

// encodePNG writes the pixels with an explicit truecolor-with-alpha color
// type. image/png silently demotes fully opaque images to truecolor without
// alpha, and the downstream edit vendor expects four channels in every
// upload, so the chunks are written by hand.
func encodePNG(img *image.NRGBA) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	row := make([]byte, 1+4*w)
	for y := 0; y < h; y++ {
		row[0] = 0 // filter: none
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(row[1:], img.Pix[off:off+4*w])
		if _, err := zw.Write(row); err != nil {
			return nil, fmt.Errorf("imgproc: encode png: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("imgproc: encode png: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(h))
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // color type: truecolor with alpha
	writeChunk(&buf, "IHDR", ihdr)
	writeChunk(&buf, "IDAT", idat.Bytes())
	writeChunk(&buf, "IEND", nil)
	return buf.Bytes(), nil
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	buf.WriteString(typ)
	buf.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	buf.Write(sum[:])
}

func longEdge(img image.Image) int {
	b := img.Bounds()
	return max(b.Dx(), b.Dy())
}
