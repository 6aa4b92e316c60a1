// Package idhash computes deterministic identifiers for models and artifacts.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// ComputeModelID computes a deterministic model_id using SHA256.
// Formula: SHA256(name|type|version|trained_at_unix_ms)
// Returns hex-encoded hash (64 characters).
func ComputeModelID(name, modelType, version string, trainedAt time.Time) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		name,
		modelType,
		version,
		trainedAt.UnixMilli(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortArtifactID returns a compact base58 fingerprint of a hex-encoded
// artifact checksum, for reports and log lines. Returns the input
// unchanged if it is not valid hex.
func ShortArtifactID(hexChecksum string) string {
	raw, err := hex.DecodeString(hexChecksum)
	if err != nil || len(raw) < 8 {
		return hexChecksum
	}
	return base58.Encode(raw[:8])
}
