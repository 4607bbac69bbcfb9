package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Domain prefixes for fingerprints. The version suffix allows a future
// algorithm change without colliding with stored values.
const (
	DomainBatch    = "crust/batch/v1"
	DomainDocument = "crust/document/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) and keeps the first
// eight bytes, read little-endian, as a 64-bit fingerprint.
func hashWithDomain(domain string, data []byte) uint64 {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// BatchFingerprint hashes a batch's content and op order. Reordering the same
// ops produces a different value; the same ops in the same order always
// produce the same value.
func BatchFingerprint(b PatchBatch) (uint64, error) {
	data, err := MarshalBatch(b)
	if err != nil {
		return 0, fmt.Errorf("BatchFingerprint: %w", err)
	}
	return hashWithDomain(DomainBatch, data), nil
}

// MustBatchFingerprint is like BatchFingerprint but panics on error.
// Batches built from the four PatchOp types never fail to encode.
func MustBatchFingerprint(b PatchBatch) uint64 {
	fp, err := BatchFingerprint(b)
	if err != nil {
		panic(err)
	}
	return fp
}

// DocumentFingerprint hashes a serialized document snapshot.
func DocumentFingerprint(serialized []byte) uint64 {
	return hashWithDomain(DomainDocument, serialized)
}

// FormatFingerprint renders a fingerprint as 16 lower-case hex digits.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// ParseFingerprint is the inverse of FormatFingerprint.
func ParseFingerprint(s string) (uint64, error) {
	fp, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint %q: %w", s, err)
	}
	return fp, nil
}
