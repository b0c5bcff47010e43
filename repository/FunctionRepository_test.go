package repository

import (
	"regexp"
	"testing"
)

func TestGenerateCraneSlug(t *testing.T) {
	tests := []struct {
		manufacturer string
		model        string
		want         string
	}{
		{"Liebherr", "LTM 1030", "liebherr-ltm1030"},
		{"Tadano", "GR-250", "tadano-gr250"},
		{" Terex ", " AC 100 ", "terex-ac100"},
		{"Liebherr", "", "liebherr"},
		{"", "LTM 1030", "ltm1030"},
		{"Grove", "GMK 5250-1 (L)", "grove-gmk52501l"},
	}
	for _, tt := range tests {
		if got := GenerateCraneSlug(tt.manufacturer, tt.model); got != tt.want {
			t.Errorf("GenerateCraneSlug(%q, %q) = %q, want %q", tt.manufacturer, tt.model, got, tt.want)
		}
	}
}

func TestGenerateCraneSlugFallsBackToRandomCode(t *testing.T) {
	slug := GenerateCraneSlug("***", "!!!")
	if matched, _ := regexp.MatchString(`^[a-z]{2}\d{5}$`, slug); !matched {
		t.Errorf("fallback slug = %q, want two letters and five digits", slug)
	}
}

func TestGenerateCraneSlugIsStable(t *testing.T) {
	a := GenerateCraneSlug("Liebherr", "LTM 1030")
	b := GenerateCraneSlug("LIEBHERR", "ltm-1030")
	if a != b {
		t.Errorf("case and punctuation changed the slug: %q vs %q", a, b)
	}
}

func TestGenerateRandomCodeShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z]{2}\d{5}$`)
	for i := 0; i < 20; i++ {
		if code := GenerateRandomCode(); !pattern.MatchString(code) {
			t.Fatalf("GenerateRandomCode() = %q, want shape ab12345", code)
		}
	}
}
