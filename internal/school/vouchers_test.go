package school

import (
	"strings"
	"testing"
)

func TestNewVoucherCode(t *testing.T) {
	code := newVoucherCode("SWING1_RETAKE_")
	if !strings.HasPrefix(code, "SWING1_RETAKE_") {
		t.Fatalf("code %q missing prefix", code)
	}
	suffix := strings.TrimPrefix(code, "SWING1_RETAKE_")
	if len(suffix) != 8 {
		t.Fatalf("suffix %q should be 8 characters", suffix)
	}
	if suffix != strings.ToUpper(suffix) {
		t.Fatalf("suffix %q should be upper case", suffix)
	}
}

func TestNewVoucherCodeVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		code := newVoucherCode("X_")
		if seen[code] {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = true
	}
}
