package textproc

import "testing"

func TestTrigrams_PaddedWords(t *testing.T) {
	set := Trigrams("oil")
	want := []string{"  o", " oi", "oil", "il "}
	if len(set) != len(want) {
		t.Fatalf("expected %d trigrams, got %d: %v", len(want), len(set), set)
	}
	for _, g := range want {
		if _, ok := set[g]; !ok {
			t.Errorf("missing trigram %q", g)
		}
	}
}

func TestTrigramSimilarity_Identical(t *testing.T) {
	if sim := TrigramSimilarity("main engine", "Main Engine"); sim != 1 {
		t.Fatalf("case-insensitive identical strings should score 1, got %f", sim)
	}
}

func TestTrigramSimilarity_Misspelling(t *testing.T) {
	// "main egnine" vs "Main Engine": the transposition keeps over half of
	// the trigram union intact, comfortably above the 0.15 floor.
	sim := TrigramSimilarity("main egnine", "Main Engine")
	if sim < 0.15 {
		t.Fatalf("misspelled query should clear the floor, got %f", sim)
	}
	if sim >= 1 {
		t.Fatalf("misspelled query should not score 1, got %f", sim)
	}
}

func TestTrigramSimilarity_Disjoint(t *testing.T) {
	if sim := TrigramSimilarity("propeller", "winch"); sim != 0 {
		t.Fatalf("unrelated words should score 0, got %f", sim)
	}
}

func TestTrigramSimilarity_Empty(t *testing.T) {
	if sim := TrigramSimilarity("", "anything"); sim != 0 {
		t.Fatalf("empty input should score 0, got %f", sim)
	}
	if sim := TrigramSimilarity("  ,. ", "anything"); sim != 0 {
		t.Fatalf("punctuation-only input should score 0, got %f", sim)
	}
}

func TestTrigramSimilarity_Symmetry(t *testing.T) {
	a, b := "fuel filter", "fuel filters"
	if TrigramSimilarity(a, b) != TrigramSimilarity(b, a) {
		t.Fatal("similarity must be symmetric")
	}
}
