// Package similarity merges near-duplicate screens by perceptual-hash distance.
package similarity

import (
	"sort"

	"github.com/devicelab-dev/screen-crawler/pkg/hashing"
)

// Candidate is a known screen eligible for similarity matching.
type Candidate struct {
	ScreenID      int64
	CompositeHash string
	VisualHash    string
}

// Disabled is the threshold value that turns similarity matching off.
const Disabled = -1

// FindSimilar returns the composite hash of the first known screen whose
// visual hash is within threshold bits of newHash.
//
// Candidates are scanned in ascending ScreenID, so the oldest matching screen
// wins regardless of the order known is given in. A negative threshold
// disables matching. Sentinel hashes on either side never match.
func FindSimilar(newHash string, known []Candidate, threshold int) (string, bool) {
	if threshold < 0 || hashing.IsSentinel(newHash) {
		return "", false
	}
	for _, c := range sorted(known) {
		if hashing.IsSentinel(c.VisualHash) {
			continue
		}
		if hashing.HammingDistance(newHash, c.VisualHash) <= threshold {
			return c.CompositeHash, true
		}
	}
	return "", false
}

// Nearest returns the closest comparable candidate and its distance.
// Ties go to the smaller ScreenID.
func Nearest(newHash string, known []Candidate) (Candidate, int, bool) {
	best, bestDist, found := Candidate{}, hashing.MaxDistance, false
	if hashing.IsSentinel(newHash) {
		return best, bestDist, false
	}
	for _, c := range sorted(known) {
		d := hashing.HammingDistance(newHash, c.VisualHash)
		if d >= hashing.MaxDistance {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, bestDist, found
}

func sorted(known []Candidate) []Candidate {
	out := make([]Candidate, len(known))
	copy(out, known)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScreenID < out[j].ScreenID })
	return out
}
