package deploygate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateArtifactIntegrity_Match(t *testing.T) {
	g := NewGate(nil)
	path, checksum := writeArtifact(t, 2048)

	r := g.ValidateArtifactIntegrity(path, checksum)
	if !r.Valid {
		t.Errorf("matching checksum rejected: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings)
	}
}

func TestValidateArtifactIntegrity_CaseInsensitiveMatch(t *testing.T) {
	g := NewGate(nil)
	path, checksum := writeArtifact(t, 512)

	if r := g.ValidateArtifactIntegrity(path, strings.ToUpper(checksum)); !r.Valid {
		t.Errorf("uppercase checksum rejected: %v", r.Errors)
	}
}

func TestValidateArtifactIntegrity_Mismatch(t *testing.T) {
	g := NewGate(nil)
	path, _ := writeArtifact(t, 2048)

	r := g.ValidateArtifactIntegrity(path, strings.Repeat("ab", 32))
	if r.Valid {
		t.Error("checksum mismatch should hard-fail")
	}
}

func TestValidateArtifactIntegrity_NoChecksumWarns(t *testing.T) {
	g := NewGate(nil)
	path, _ := writeArtifact(t, 2048)

	r := g.ValidateArtifactIntegrity(path, "")
	if !r.Valid {
		t.Errorf("absent expected checksum should pass: %v", r.Errors)
	}
	if len(r.Warnings) == 0 {
		t.Error("absent expected checksum should warn")
	}
}

func TestValidateArtifactIntegrity_EmptyArtifact(t *testing.T) {
	g := NewGate(nil)
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if r := g.ValidateArtifactIntegrity(path, ""); r.Valid {
		t.Error("empty artifact should hard-fail")
	}
}

func TestValidateArtifactIntegrity_MissingArtifact(t *testing.T) {
	g := NewGate(nil)

	if r := g.ValidateArtifactIntegrity(filepath.Join(t.TempDir(), "absent.bin"), ""); r.Valid {
		t.Error("missing artifact should hard-fail")
	}
}
