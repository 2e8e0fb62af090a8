package packtitle

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain words", "summer memes", "Summer Memes"},
		{"separators collapse", "summer__memes--2026", "Summer Memes 2026"},
		{"dots become spaces", "best.of.the.best", "Best Of The Best"},
		{"punctuation dropped", "what?! really...", "What Really"},
		{"already titled", "Holiday Pack", "Holiday Pack"},
		{"empty", "", "Untitled Pack"},
		{"only punctuation", "!!! ???", "Untitled Pack"},
		{"surrounding whitespace", "  quiet pack  ", "Quiet Pack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateShortName(t *testing.T) {
	valid := []string{"memes", "memes_2026", "a", "pack_one"}
	for _, name := range valid {
		if err := ValidateShortName(name); err != nil {
			t.Errorf("ValidateShortName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "2pack", "_pack", "Pack", "my-pack", "my pack", "pack!"}
	for _, name := range invalid {
		if err := ValidateShortName(name); err == nil {
			t.Errorf("ValidateShortName(%q) = nil, want error", name)
		}
	}
}
