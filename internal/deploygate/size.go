package deploygate

import "os"

// ValidateModelSize checks the artifact's byte size against the
// configured maximum. Exactly the maximum passes; one byte over fails.
func (g *Gate) ValidateModelSize(artifactPath string) *CheckResult {
	t := g.thresholds
	r := newCheckResult()
	r.set("artifact_path", artifactPath)
	r.set("max_bytes", t.MaxArtifactBytes)

	info, err := os.Stat(artifactPath)
	if err != nil {
		r.fail("artifact not accessible: %v", err)
		return r
	}
	if info.IsDir() {
		r.fail("artifact path %s is a directory", artifactPath)
		return r
	}

	size := info.Size()
	r.set("size_bytes", size)

	if size > t.MaxArtifactBytes {
		r.fail("artifact size %d bytes exceeds maximum %d", size, t.MaxArtifactBytes)
		return r
	}

	warnAt := int64(float64(t.MaxArtifactBytes) * t.SizeWarnFraction)
	if size >= warnAt {
		r.warn("artifact size %d bytes is at %.0f%% of the %d-byte maximum",
			size, 100*float64(size)/float64(t.MaxArtifactBytes), t.MaxArtifactBytes)
	}
	if size < t.MinArtifactBytes {
		r.warn("artifact size %d bytes is suspiciously small (under %d)",
			size, t.MinArtifactBytes)
	}

	return r
}
