package hashing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// gradientPNG renders a horizontal gradient with an optional bright block.
func gradientPNG(t *testing.T, w, h int, block bool) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / w)})
		}
	}
	if block {
		for y := 0; y < h/2; y++ {
			for x := w / 2; x < w; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestXMLHash(t *testing.T) {
	h := New(nil)

	assert.Equal(t, core.NoXML, h.XMLHash(""))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h.XMLHash("abc"))
	assert.Len(t, h.XMLHash("<a/>"), 64)
	assert.NotEqual(t, h.XMLHash("<a/>"), h.XMLHash("<a />"), "no normalization is applied")
}

func TestVisualHash_Sentinels(t *testing.T) {
	obs, logs := observer.New(zap.ErrorLevel)
	h := New(zap.New(obs))

	assert.Equal(t, core.NoImage, h.VisualHash(nil))
	assert.Equal(t, core.HashError, h.VisualHash([]byte("definitely not an image")))
	assert.Equal(t, 1, logs.Len(), "decode failure is logged, not returned")
}

func TestVisualHash_Deterministic(t *testing.T) {
	h := New(nil)
	data := gradientPNG(t, 120, 200, false)

	first := h.VisualHash(data)
	second := h.VisualHash(data)

	assert.Len(t, first, 16)
	assert.Equal(t, first, second)
	assert.False(t, IsSentinel(first))
}

func TestVisualHash_ScaledImageIsSimilar(t *testing.T) {
	h := New(nil)
	small := h.VisualHash(gradientPNG(t, 120, 200, true))
	large := h.VisualHash(gradientPNG(t, 240, 400, true))

	assert.LessOrEqual(t, HammingDistance(small, large), 8)
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name string
		h1   string
		h2   string
		want int
	}{
		{"identical", "ffffffffffffffff", "ffffffffffffffff", 0},
		{"one bit", "0000000000000000", "0000000000000001", 1},
		{"all bits", "0000000000000000", "ffffffffffffffff", 64},
		{"three bits", "00000000000000f0", "0000000000000010", 3},
		{"no image", "no_image", "0000000000000000", MaxDistance},
		{"hash error both", "hash_error", "hash_error", MaxDistance},
		{"malformed", "zzzzzzzzzzzzzzzz", "zzzzzzzzzzzzzzzz", MaxDistance},
		{"length mismatch", "00", "0000", MaxDistance},
		{"empty", "", "", MaxDistance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HammingDistance(tt.h1, tt.h2))
		})
	}
}

func TestHammingDistance_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64().Draw(t, "a")
		b := rapid.Uint64().Draw(t, "b")
		ha, hb := hex64(a), hex64(b)

		d := HammingDistance(ha, hb)
		if d != HammingDistance(hb, ha) {
			t.Fatalf("distance is not symmetric for %s %s", ha, hb)
		}
		if d < 0 || d > 64 {
			t.Fatalf("distance %d out of range", d)
		}
		if (d == 0) != (a == b) {
			t.Fatalf("zero distance iff equal violated for %s %s", ha, hb)
		}
	})
}

func hex64(v uint64) string {
	return fmt.Sprintf("%016x", v)
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{core.NoImage, core.HashError, core.NoXML, ""} {
		assert.True(t, IsSentinel(s), s)
	}
	assert.False(t, IsSentinel("00ff00ff00ff00ff"))
}
