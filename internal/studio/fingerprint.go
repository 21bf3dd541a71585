package studio

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"atelier/internal/domain"
)

// Fingerprint derives the result-cache key for one generation request.
// It hashes the full image references plus the parameters that change
// the rendered output; a nil seed hashes as "none" so that explicit and
// vendor-assigned seeds never collide.
func Fingerprint(params domain.TryOnParams) string {
	seed := "none"
	if params.Seed != nil {
		seed = strconv.FormatInt(*params.Seed, 10)
	}
	parts := []string{
		params.ModelImage,
		params.GarmentImage,
		seed,
		string(params.Mode),
		params.Category,
		strconv.Itoa(params.NumSamples),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
