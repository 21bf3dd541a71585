package quality

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"atelier/internal/domain"
)

// maxAnalysisEdge bounds the working copy all pixel statistics run on.
const maxAnalysisEdge = 512

// downscale returns a working copy whose long edge is at most maxAnalysisEdge.
// Smaller images pass through untouched; we never upscale.
func downscale(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= maxAnalysisEdge && b.Dy() <= maxAnalysisEdge {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, maxAnalysisEdge, maxAnalysisEdge, imaging.Lanczos)
}

// computeMetrics fills a PhotoMetrics from a working copy. The caller supplies
// the original dimensions so resolution checks see the real upload size.
func computeMetrics(work *image.NRGBA, origW, origH int) domain.PhotoMetrics {
	gray := imaging.Grayscale(work)
	m := domain.PhotoMetrics{
		Width:  origW,
		Height: origH,
	}
	if origH > 0 {
		m.AspectRatio = float64(origW) / float64(origH)
	}
	m.LaplacianVariance = laplacianVariance(gray)
	m.MeanLuminance, m.ClippedFraction = luminanceStats(work)
	m.EdgeDensity = edgeDensity(gray, 30)
	m.BorderVariance = borderVariance(gray)
	m.CenterBrightness = regionMeanLuminance(gray, centerRegion(gray.Bounds()))
	m.BackgroundContrast = math.Abs(m.CenterBrightness - borderMeanLuminance(gray))
	return m
}

// laplacianVariance is the classic blur proxy: variance of a 3x3 Laplacian
// convolution over the grayscale buffer, in 0..255 luminance units.
func laplacianVariance(gray *image.NRGBA) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	responses := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := lum(gray, x, y)
			top := lum(gray, x, y-1)
			bottom := lum(gray, x, y+1)
			left := lum(gray, x-1, y)
			right := lum(gray, x+1, y)
			responses = append(responses, -4*center+top+bottom+left+right)
		}
	}
	if len(responses) == 0 {
		return 0
	}
	return stat.Variance(responses, nil)
}

// luminanceStats returns the mean luminance in [0,1] and the fraction of
// pixels clipped to near-black or near-white.
func luminanceStats(img *image.NRGBA) (mean, clipped float64) {
	b := img.Bounds()
	total := float64(b.Dx() * b.Dy())
	if total == 0 {
		return 0, 0
	}
	var sum float64
	var clippedCount int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			bl := float64(img.Pix[i+2])
			l := 0.299*r + 0.587*g + 0.114*bl
			sum += l
			if l < 10 || l > 245 {
				clippedCount++
			}
		}
	}
	return sum / total / 255, float64(clippedCount) / total
}

// edgeDensity is the fraction of interior pixels whose Sobel gradient
// magnitude exceeds the threshold. Used as a background-busyness proxy.
func edgeDensity(gray *image.NRGBA, threshold float64) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	edges := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -lum(gray, x-1, y-1) + lum(gray, x+1, y-1) +
				-2*lum(gray, x-1, y) + 2*lum(gray, x+1, y) +
				-lum(gray, x-1, y+1) + lum(gray, x+1, y+1)
			gy := -lum(gray, x-1, y-1) - 2*lum(gray, x, y-1) - lum(gray, x+1, y-1) +
				lum(gray, x-1, y+1) + 2*lum(gray, x, y+1) + lum(gray, x+1, y+1)
			if math.Sqrt(gx*gx+gy*gy) > threshold {
				edges++
			}
		}
	}
	return float64(edges) / float64((w-2)*(h-2))
}

// borderVariance is the variance of normalized luminance over a border strip
// one tenth of the short edge wide. High values suggest the subject runs off
// the frame.
func borderVariance(gray *image.NRGBA) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	strip := min(w, h) / 10
	if strip < 1 {
		strip = 1
	}
	values := make([]float64, 0, 4*strip*(w+h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= strip && x < w-strip && y >= strip && y < h-strip {
				continue
			}
			values = append(values, lum(gray, x, y)/255)
		}
	}
	if len(values) < 2 {
		return 0
	}
	return stat.Variance(values, nil)
}

// borderMeanLuminance averages normalized luminance over the same border strip.
func borderMeanLuminance(gray *image.NRGBA) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	strip := min(w, h) / 10
	if strip < 1 {
		strip = 1
	}
	var sum float64
	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= strip && x < w-strip && y >= strip && y < h-strip {
				continue
			}
			sum += lum(gray, x, y) / 255
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// centerRegion is the middle half of the frame in both dimensions.
func centerRegion(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	return image.Rect(
		b.Min.X+w/4,
		b.Min.Y+h/4,
		b.Max.X-w/4,
		b.Max.Y-h/4,
	)
}

// regionMeanLuminance averages normalized luminance over the given region.
func regionMeanLuminance(gray *image.NRGBA, region image.Rectangle) float64 {
	region = region.Intersect(gray.Bounds())
	total := float64(region.Dx() * region.Dy())
	if total == 0 {
		return 0
	}
	var sum float64
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			sum += lum(gray, x, y) / 255
		}
	}
	return sum / total
}

// lum reads the luminance of a grayscale NRGBA pixel. imaging.Grayscale keeps
// the NRGBA layout with R==G==B.
func lum(img *image.NRGBA, x, y int) float64 {
	return float64(img.Pix[img.PixOffset(x, y)])
}
