package content

import "testing"

func TestNormalizeSlug(t *testing.T) {
	tests := map[string]string{
		"Merkle Trees":     "merkle-trees",
		"proof_of_stake":   "proof_of_stake",
		"  spaced  out  ":  "spaced-out",
		"Éther--Münze":     "ether-munze",
		"already-kebab-42": "already-kebab-42",
	}

	for input, want := range tests {
		got, err := NormalizeSlug(input)
		if err != nil {
			t.Fatalf("NormalizeSlug(%q) unexpected error: %v", input, err)
		}
		if got != want {
			t.Fatalf("NormalizeSlug(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeSlugInvalid(t *testing.T) {
	inputs := []string{"", "   ", "../etc/passwd", "a/b", "white space?", "Привет"}
	for _, input := range inputs {
		if _, err := NormalizeSlug(input); err == nil {
			t.Fatalf("NormalizeSlug(%q) expected error", input)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	if got, want := CategoryLabel("ethereum"), "Ethereum"; got != want {
		t.Fatalf("CategoryLabel() = %q, want %q", got, want)
	}
	if got, want := CategoryLabel("smart-contracts"), "Smart Contracts"; got != want {
		t.Fatalf("CategoryLabel() = %q, want %q", got, want)
	}
}
