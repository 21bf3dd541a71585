package studio

import (
	"testing"

	"atelier/internal/domain"
)

func TestFingerprintSeedSensitivity(t *testing.T) {
	params := domain.TryOnParams{
		ModelImage:   "https://cdn.example.com/actor.png",
		GarmentImage: "https://cdn.example.com/garment.png",
		Category:     "tops",
		Mode:         domain.ModeQuality,
		NumSamples:   1,
	}
	unseeded := Fingerprint(params)

	seed := int64(7)
	params.Seed = &seed
	seeded := Fingerprint(params)
	if unseeded == seeded {
		t.Fatalf("changing seed alone must change the fingerprint")
	}

	other := int64(8)
	params.Seed = &other
	if Fingerprint(params) == seeded {
		t.Fatalf("distinct seeds must produce distinct fingerprints")
	}

	params.Seed = &seed
	if Fingerprint(params) != seeded {
		t.Fatalf("fingerprint must be deterministic")
	}
}

func TestFingerprintUsesFullReferences(t *testing.T) {
	a := domain.TryOnParams{
		ModelImage:   "https://signed.example.com/bucket/very/long/common/prefix/actor-one.png",
		GarmentImage: "https://cdn.example.com/garment.png",
		NumSamples:   1,
	}
	b := a
	b.ModelImage = "https://signed.example.com/bucket/very/long/common/prefix/actor-two.png"
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatalf("references sharing a long prefix must not collide")
	}
}

func TestResultCacheCopies(t *testing.T) {
	cache := NewMemoryResultCache()
	results := []domain.TryOnResult{{ImageURL: "https://r.example.com/0.png", Seed: 1}}
	cache.Set("fp", results)
	results[0].ImageURL = "mutated"

	got, ok := cache.Get("fp")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got[0].ImageURL != "https://r.example.com/0.png" {
		t.Fatalf("cache must not share backing slices with callers")
	}
	got[0].ImageURL = "mutated again"

	again, _ := cache.Get("fp")
	if again[0].ImageURL != "https://r.example.com/0.png" {
		t.Fatalf("cache reads must be isolated")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one entry, got %d", cache.Len())
	}
}
