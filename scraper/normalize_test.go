package scraper

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "MacBook Pro", "macbook pro"},
		{"strips diacritics", "Café Crème", "cafe creme"},
		{"punctuation becomes space", "iPhone-15 (Pro), 256GB!", "iphone 15 pro 256gb"},
		{"collapses whitespace", "  Samsung   Galaxy\tS24  ", "samsung galaxy s24"},
		{"mixed", "Écran LG UltraGear 27\"", "ecran lg ultragear 27"},
		{"empty", "", ""},
		{"only punctuation", "!!! --- ???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTitle(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{"Café RTX-4090 Ti!", "ASUS ROG Strix", "  plain  text  "}
	for _, input := range inputs {
		once := NormalizeTitle(input)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestNormalizeTitleDiacriticsEquivalence(t *testing.T) {
	if NormalizeTitle("Café RTX") != NormalizeTitle("cafe rtx") {
		t.Errorf("accented and plain forms should normalize identically")
	}
}
