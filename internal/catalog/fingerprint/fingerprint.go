// Package fingerprint implements the change-detection gate that decides
// whether a freshly fetched catalog snapshot needs to be written to durable
// storage.
//
// The digest is the decimal byte-length of the snapshot's JSON serialization.
// It is deliberately cheap and collision-tolerant: two different catalogs of
// the same serialized length compare equal, which is accepted in exchange for
// skipping redundant whole-catalog writes on every poll.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lumapos/edge/internal/catalog"
)

// Slot is the name of the single durable slot holding the last digest.
const Slot = "products_hash"

// Digest computes the snapshot's fingerprint. It is deterministic and
// side-effect free; the same snapshot always yields the same digest.
func Digest(snapshot catalog.Snapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return strconv.Itoa(len(payload)), nil
}

// ShouldWrite compares the previous digest against the snapshot's and reports
// whether the snapshot must be persisted. previous is empty when no digest has
// been stored yet, which always forces a write.
func ShouldWrite(previous string, snapshot catalog.Snapshot) (bool, string, error) {
	digest, err := Digest(snapshot)
	if err != nil {
		return false, "", err
	}
	return digest != previous, digest, nil
}
