// Package hashing computes the structural and perceptual identity of a screen.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math/bits"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// MaxDistance is returned when two hashes cannot be compared.
const MaxDistance = 1000

// Hasher computes screen hashes. Hashing never fails; undecodable input
// degrades to a sentinel value.
type Hasher struct {
	log *zap.Logger
}

// New creates a Hasher.
func New(log *zap.Logger) *Hasher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hasher{log: log.Named("hasher")}
}

// XMLHash returns the SHA-256 hex digest of the hierarchy XML as given.
func (h *Hasher) XMLHash(xml string) string {
	if xml == "" {
		return core.NoXML
	}
	sum := sha256.Sum256([]byte(xml))
	return hex.EncodeToString(sum[:])
}

// VisualHash returns the 64-bit perceptual hash of the screenshot, hex-encoded.
func (h *Hasher) VisualHash(screenshot []byte) string {
	if len(screenshot) == 0 {
		return core.NoImage
	}
	img, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		h.log.Error("decode screenshot", zap.Error(core.ErrImageDecode.WithCause(err)))
		return core.HashError
	}
	ph, err := goimagehash.PerceptionHash(img)
	if err != nil {
		h.log.Error("perception hash", zap.Error(core.ErrImageDecode.WithCause(err)))
		return core.HashError
	}
	return fmt.Sprintf("%016x", ph.GetHash())
}

// IsSentinel reports whether h is one of the reserved non-hash values.
func IsSentinel(h string) bool {
	switch h {
	case core.NoImage, core.HashError, core.NoXML, "":
		return true
	}
	return false
}

// HammingDistance returns the number of differing bits between two hex hashes.
// Sentinels, malformed hex and mismatched lengths yield MaxDistance.
func HammingDistance(h1, h2 string) int {
	if IsSentinel(h1) || IsSentinel(h2) {
		return MaxDistance
	}
	if len(h1) != len(h2) {
		return MaxDistance
	}
	b1, err := hex.DecodeString(h1)
	if err != nil {
		return MaxDistance
	}
	b2, err := hex.DecodeString(h2)
	if err != nil {
		return MaxDistance
	}
	dist := 0
	for i := range b1 {
		dist += bits.OnesCount8(b1[i] ^ b2[i])
	}
	return dist
}
