package cache

import (
	"testing"
)

func TestKey_Deterministic(t *testing.T) {
	t.Parallel()

	k1 := Key("newsletter", "Hello world")
	k2 := Key("newsletter", "Hello world")

	if k1 != k2 {
		t.Error("same parts should produce same key")
	}
}

func TestKey_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parts []string
	}{
		{"none", nil},
		{"empty part", []string{""}},
		{"single", []string{"abc"}},
		{"many", []string{"a", "b", "c", "d"}},
		{"unicode", []string{"résumé", "日本語"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key := Key(tt.parts...)
			// BLAKE2b-256 encoded as 64 hex chars
			if len(key) != 64 {
				t.Errorf("Key(%q) length = %d, want 64", tt.parts, len(key))
			}
		})
	}
}

func TestKey_Different(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    []string
		b    []string
	}{
		{"different content", []string{"newsletter", "a"}, []string{"newsletter", "b"}},
		{"different kind", []string{"newsletter", "a"}, []string{"digest", "a"}},
		{"shifted boundary", []string{"ab", "c"}, []string{"a", "bc"}},
		{"extra empty part", []string{"a"}, []string{"a", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if Key(tt.a...) == Key(tt.b...) {
				t.Errorf("Key(%q) and Key(%q) should differ", tt.a, tt.b)
			}
		})
	}
}
