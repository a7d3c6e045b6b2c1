package visual

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"helix-auth/go-backend/pkg/models"
)

func testKey(t *testing.T) models.DNAKey {
	t.Helper()
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return models.DNAKey{
		KeyID:      "dna1test",
		VisualSeed: seed,
		Segments:   make([]models.Segment, 1_024),
	}
}

func TestDescribeIsDeterministic(t *testing.T) {
	key := testKey(t)
	first, err := Describe(key)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	second, err := Describe(key)
	if err != nil {
		t.Fatalf("describe again: %v", err)
	}
	if first.Strands != second.Strands || first.Turns != second.Turns {
		t.Fatalf("layout drifted: %+v vs %+v", first, second)
	}
	for i := range first.Palette {
		if first.Palette[i] != second.Palette[i] {
			t.Fatalf("palette drifted at %d", i)
		}
	}
	if first.SegmentCount != 1_024 {
		t.Fatalf("segment count = %d", first.SegmentCount)
	}
}

func TestDescribeVariesWithSeed(t *testing.T) {
	a, err := Describe(testKey(t))
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	b, err := Describe(testKey(t))
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if bytes.Equal(a.VisualSeed, b.VisualSeed) {
		t.Fatal("fixtures share a seed")
	}
	same := a.Strands == b.Strands && a.Turns == b.Turns
	for i := range a.Palette {
		same = same && a.Palette[i] == b.Palette[i]
	}
	if same {
		t.Fatal("distinct seeds produced an identical layout")
	}
}

func TestDescribeRequiresSeed(t *testing.T) {
	if _, err := Describe(models.DNAKey{KeyID: "dna1test"}); !errors.Is(err, ErrNoVisualSeed) {
		t.Fatalf("got %v, want ErrNoVisualSeed", err)
	}
}
