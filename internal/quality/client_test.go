package quality

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"atelier/internal/domain"
)

func flatImage(w, h int, value uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: value, G: value, B: value, A: 255})
		}
	}
	return img
}

// noiseImage is a sharp, well-exposed synthetic photo: per-pixel noise kept
// away from the clipping bands.
func noiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(30 + rng.Intn(196))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func hasIssue(issues []domain.PhotoIssue, id string) bool {
	for _, issue := range issues {
		if issue.ID == id {
			return true
		}
	}
	return false
}

func findIssue(t *testing.T, issues []domain.PhotoIssue, id string) domain.PhotoIssue {
	t.Helper()
	for _, issue := range issues {
		if issue.ID == id {
			return issue
		}
	}
	t.Fatalf("issue %s not found in %+v", id, issues)
	return domain.PhotoIssue{}
}

func TestQuickCheckSmallFlatGarment(t *testing.T) {
	partial := QuickCheck(flatImage(400, 300, 128), domain.PhotoKindGarment)

	res := findIssue(t, partial.Issues, "resolution-too-low")
	if res.Severity != domain.SeverityFail {
		t.Fatalf("resolution-too-low severity: %s", res.Severity)
	}
	blur := findIssue(t, partial.Issues, "blur-severe")
	if blur.Severity != domain.SeverityFail {
		t.Fatalf("blur-severe severity: %s", blur.Severity)
	}
	if !hasIssue(partial.Issues, "garment-too-small") {
		t.Fatalf("expected garment-too-small, got %+v", partial.Issues)
	}

	result := Combine(domain.PhotoKindGarment, partial, nil)
	if result.Score > 75 {
		t.Fatalf("expected score <= 75 for a failing upload, got %d", result.Score)
	}
	if result.Status != domain.SeverityFail {
		t.Fatalf("expected fail status, got %s", result.Status)
	}
}

func TestQuickCheckBlurSevereRegardlessOfOtherMetrics(t *testing.T) {
	// Large, well-exposed, but perfectly flat: Laplacian variance is zero.
	partial := QuickCheck(flatImage(1600, 1600, 128), domain.PhotoKindActor)
	if !hasIssue(partial.Issues, "blur-severe") {
		t.Fatalf("expected blur-severe on a flat image, got %+v", partial.Issues)
	}
	if partial.Metrics == nil || partial.Metrics.LaplacianVariance != 0 {
		t.Fatalf("expected zero Laplacian variance, got %+v", partial.Metrics)
	}
}

func TestQuickCheckSharpImageHasNoBlurOrResolutionIssues(t *testing.T) {
	partial := QuickCheck(noiseImage(1600, 1200, 7), domain.PhotoKindActor)
	for _, id := range []string{"blur-severe", "blur-moderate", "resolution-too-low", "resolution-low", "actor-too-small"} {
		if hasIssue(partial.Issues, id) {
			t.Fatalf("unexpected issue %s: %+v", id, partial.Issues)
		}
	}
	if partial.Metrics.LaplacianVariance < blurWarnVariance {
		t.Fatalf("expected high variance on noise, got %f", partial.Metrics.LaplacianVariance)
	}
}

func TestQuickCheckBrightness(t *testing.T) {
	dark := QuickCheck(flatImage(1600, 1200, 20), domain.PhotoKindGarment)
	if !hasIssue(dark.Issues, "brightness-low") {
		t.Fatalf("expected brightness-low, got %+v", dark.Issues)
	}

	bright := QuickCheck(flatImage(1600, 1200, 230), domain.PhotoKindGarment)
	if !hasIssue(bright.Issues, "brightness-high") {
		t.Fatalf("expected brightness-high, got %+v", bright.Issues)
	}

	clipped := QuickCheck(flatImage(1600, 1200, 255), domain.PhotoKindGarment)
	if !hasIssue(clipped.Issues, "brightness-clipped") {
		t.Fatalf("expected brightness-clipped, got %+v", clipped.Issues)
	}
}

func TestQuickCheckAspectRatio(t *testing.T) {
	partial := QuickCheck(flatImage(3000, 1000, 128), domain.PhotoKindGarment)
	if !hasIssue(partial.Issues, "aspect-extreme") {
		t.Fatalf("expected aspect-extreme for 3:1, got %+v", partial.Issues)
	}
	if partial.Metrics.AspectRatio != 3 {
		t.Fatalf("aspect ratio: got %f", partial.Metrics.AspectRatio)
	}
}

func TestQuickCheckActorTooSmall(t *testing.T) {
	partial := QuickCheck(noiseImage(700, 1400, 3), domain.PhotoKindActor)
	if !hasIssue(partial.Issues, "actor-too-small") {
		t.Fatalf("expected actor-too-small, got %+v", partial.Issues)
	}
}
