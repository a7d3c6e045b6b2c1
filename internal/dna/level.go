package dna

import (
	"errors"
	"fmt"

	"helix-auth/go-backend/pkg/models"
)

var ErrInvalidSecurityLevel = errors.New("invalid security level")

var segmentCounts = map[models.SecurityLevel]int{
	models.LevelStandard:   1_024,
	models.LevelEnhanced:   16_384,
	models.LevelMaximum:    65_536,
	models.LevelGovernment: 262_144,
}

var levelBytes = map[models.SecurityLevel]byte{
	models.LevelStandard:   0x01,
	models.LevelEnhanced:   0x02,
	models.LevelMaximum:    0x03,
	models.LevelGovernment: 0x04,
}

// SegmentCount returns the fixed chain length for a security level.
func SegmentCount(level models.SecurityLevel) (int, error) {
	count, ok := segmentCounts[level]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSecurityLevel, level)
	}
	return count, nil
}

// segmentTypeOrder is the fixed cycle segment types are assigned in. The
// distribution over a chain is a pure function of (level, index): counts
// are powers of two, so the cycle wraps and every type appears with the
// same relative frequency at every level.
var segmentTypeOrder = []models.SegmentType{
	models.SegmentEntropy,
	models.SegmentPolicy,
	models.SegmentIdentityCommitment,
	models.SegmentTemporal,
	models.SegmentCapability,
	models.SegmentSignature,
	models.SegmentMetadata,
	models.SegmentBiometricAnchor,
	models.SegmentGeolocationPolicy,
	models.SegmentRevocationToken,
}

func segmentTypeFor(index int) models.SegmentType {
	return segmentTypeOrder[index%len(segmentTypeOrder)]
}
