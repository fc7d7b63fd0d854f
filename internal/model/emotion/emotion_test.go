package emotion

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]Label{
		" Sadness ": Sadness,
		"JOY":       Joy,
		"":          Neutral,
		"confused":  Label("confused"),
	}
	for raw, want := range cases {
		if got := Normalize(raw); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestKnown(t *testing.T) {
	for _, label := range All() {
		if label == Neutral {
			if label.Known() {
				t.Fatal("neutral should take the fallback path")
			}
			continue
		}
		if !label.Known() {
			t.Fatalf("expected %s to be known", label)
		}
	}
	if Label("confused").Known() {
		t.Fatal("unexpected known label")
	}
}
