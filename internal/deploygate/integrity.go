package deploygate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ValidateArtifactIntegrity checks that the artifact exists, is
// non-empty and readable, and, when an expected checksum is supplied,
// that its SHA-256 digest matches. An empty expectedChecksum skips the
// digest comparison with a warning.
func (g *Gate) ValidateArtifactIntegrity(artifactPath, expectedChecksum string) *CheckResult {
	r := newCheckResult()
	r.set("artifact_path", artifactPath)

	f, err := os.Open(artifactPath)
	if err != nil {
		r.fail("artifact not readable: %v", err)
		return r
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		r.fail("stat artifact: %v", err)
		return r
	}
	if info.IsDir() {
		r.fail("artifact path %s is a directory", artifactPath)
		return r
	}
	if info.Size() == 0 {
		r.fail("artifact is empty")
		return r
	}

	checksum, err := hashReader(f)
	if err != nil {
		r.fail("read artifact: %v", err)
		return r
	}
	r.set("sha256", checksum)

	if expectedChecksum == "" {
		r.warn("no expected checksum supplied, integrity cannot be verified")
		return r
	}

	if !strings.EqualFold(checksum, expectedChecksum) {
		r.fail("checksum mismatch: artifact %s, expected %s", checksum, expectedChecksum)
	}

	return r
}

// hashReader computes the SHA-256 hex digest of a stream.
func hashReader(rd io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, rd); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
