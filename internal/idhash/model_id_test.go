package idhash

import (
	"strings"
	"testing"
	"time"
)

func TestComputeModelID_Deterministic(t *testing.T) {
	trainedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	id1 := ComputeModelID("spx-direction", "LIGHTGBM", "2.1.0", trainedAt)
	id2 := ComputeModelID("spx-direction", "LIGHTGBM", "2.1.0", trainedAt)

	if id1 != id2 {
		t.Errorf("same inputs produced different ids: %s vs %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("expected 64-char hex id, got %d chars", len(id1))
	}
}

func TestComputeModelID_DistinguishesInputs(t *testing.T) {
	trainedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	base := ComputeModelID("spx-direction", "LIGHTGBM", "2.1.0", trainedAt)

	variants := []string{
		ComputeModelID("spx-direction2", "LIGHTGBM", "2.1.0", trainedAt),
		ComputeModelID("spx-direction", "XGBOOST", "2.1.0", trainedAt),
		ComputeModelID("spx-direction", "LIGHTGBM", "2.1.1", trainedAt),
		ComputeModelID("spx-direction", "LIGHTGBM", "2.1.0", trainedAt.Add(time.Millisecond)),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base id", i)
		}
	}
}

func TestShortArtifactID(t *testing.T) {
	// 64-char hex checksum
	checksum := strings.Repeat("ab", 32)

	short := ShortArtifactID(checksum)
	if short == checksum {
		t.Error("expected shortened id for valid hex input")
	}
	if len(short) == 0 || len(short) > 16 {
		t.Errorf("unexpected short id length %d", len(short))
	}

	// Non-hex input passes through
	if got := ShortArtifactID("not-hex!"); got != "not-hex!" {
		t.Errorf("expected pass-through for invalid hex, got %s", got)
	}
}
