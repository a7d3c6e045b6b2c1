package visual

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"helix-auth/go-backend/pkg/models"

	"golang.org/x/crypto/hkdf"
)

const hkdfInfoLayout = "helix/dna/visual-layout/v1"

var ErrNoVisualSeed = errors.New("key record carries no visual seed")

// Descriptor is the deterministic rendering input the out-of-scope 3D
// collaborator consumes. It is derived from public fields only.
type Descriptor struct {
	KeyID        string   `json:"key_id"`
	VisualSeed   []byte   `json:"visual_seed"`
	SegmentCount int      `json:"segment_count"`
	Strands      int      `json:"strands"`
	Turns        int      `json:"turns"`
	Palette      []string `json:"palette"`
}

const paletteSize = 5

// Describe derives the layout for a key record. The same record always
// yields the same descriptor.
func Describe(key models.DNAKey) (Descriptor, error) {
	if len(key.VisualSeed) == 0 {
		return Descriptor{}, ErrNoVisualSeed
	}
	reader := hkdf.New(sha256.New, key.VisualSeed, nil, []byte(hkdfInfoLayout))
	raw := make([]byte, 2+paletteSize*3)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return Descriptor{}, err
	}

	palette := make([]string, 0, paletteSize)
	for i := 0; i < paletteSize; i++ {
		c := raw[2+i*3 : 2+i*3+3]
		palette = append(palette, fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
	}
	return Descriptor{
		KeyID:        key.KeyID,
		VisualSeed:   append([]byte(nil), key.VisualSeed...),
		SegmentCount: len(key.Segments),
		Strands:      2 + int(raw[0])%3,
		Turns:        8 + int(raw[1])%24,
		Palette:      palette,
	}, nil
}
