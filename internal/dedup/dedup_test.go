package dedup

import (
	"math"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/curator/internal/sample"
)

func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		set[f] = struct{}{}
	}
	return set
}

func cand(sig, text string, emb ...float32) *sample.Candidate {
	return &sample.Candidate{DedupSignature: sig, Response: text, TokenSet: tokens(text), Embedding: emb}
}

func TestThresholdsClamped(t *testing.T) {
	tests := []struct {
		name string
		in   Thresholds
		want Thresholds
	}{
		{"zero uses defaults", Thresholds{}, Thresholds{Jaccard: 0.85, Semantic: 0.95}},
		{"in range kept", Thresholds{Jaccard: 0.7, Semantic: 0.9}, Thresholds{Jaccard: 0.7, Semantic: 0.9}},
		{"too low raised", Thresholds{Jaccard: 0.1, Semantic: 0.2}, Thresholds{Jaccard: 0.5, Semantic: 0.6}},
		{"too high lowered", Thresholds{Jaccard: 1.0, Semantic: 1.0}, Thresholds{Jaccard: 0.98, Semantic: 0.995}},
		{"NaN uses defaults", Thresholds{Jaccard: math.NaN(), Semantic: math.NaN()}, Thresholds{Jaccard: 0.85, Semantic: 0.95}},
		{"NaN jaccard only", Thresholds{Jaccard: math.NaN(), Semantic: 0.9}, Thresholds{Jaccard: 0.85, Semantic: 0.9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamped(); got != tt.want {
				t.Errorf("Clamped() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "i love you", "i love you", 1},
		{"disjoint", "red green", "blue yellow", 0},
		{"half overlap", "a b c", "b c d", 0.5},
		{"both empty", "", "", 0},
		{"one empty", "a", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tokens(tt.a), tokens(tt.b))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Jaccard(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Cosine = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAdmit_CheckOrder(t *testing.T) {
	th := DefaultThresholds()
	existing := sample.SignatureSet{"sig-old": {}}
	accepted := []*sample.Candidate{cand("sig-a", "see you at the station at noon", 1, 0, 0)}

	tests := []struct {
		name string
		c    *sample.Candidate
		want Verdict
	}{
		// Matches all three checks; exact wins because it runs first.
		{"exact before lexical", cand("sig-old", "see you at the station at noon", 1, 0, 0), RejectedExact},
		{"lexical before semantic", cand("sig-b", "see you at the station at noon", 1, 0, 0), RejectedLexical},
		{"semantic", cand("sig-c", "meet me by the trains around twelve", 0.99, 0.05, 0), RejectedSemantic},
		{"novel", cand("sig-d", "my sister just adopted a puppy", 0, 1, 0), Admitted},
		{"no embedding skips semantic", cand("sig-e", "meet me by the trains around twelve"), Admitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Admit(tt.c, accepted, existing, th); got != tt.want {
				t.Errorf("Admit() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEngine_GrowsAcceptedSet(t *testing.T) {
	e := NewEngine(nil, Thresholds{Jaccard: 0.85})

	first := cand("1", "i love you")
	second := cand("2", "i love you")
	third := cand("3", "we should get dinner on friday")

	if v := e.Admit(first); v != Admitted {
		t.Fatalf("first = %s, want admitted", v)
	}
	if v := e.Admit(second); v != RejectedLexical {
		t.Fatalf("second = %s, want lexical", v)
	}
	if v := e.Admit(third); v != Admitted {
		t.Fatalf("third = %s, want admitted", v)
	}

	if got := len(e.Accepted()); got != 2 {
		t.Errorf("accepted = %d, want 2", got)
	}
	if e.Accepted()[0] != first || e.Accepted()[1] != third {
		t.Error("accepted set should keep admission order")
	}
	if e.Rejected(RejectedLexical) != 1 {
		t.Errorf("lexical rejections = %d, want 1", e.Rejected(RejectedLexical))
	}
	if e.Thresholds().Semantic != DefaultSemantic {
		t.Errorf("semantic threshold = %f, want default", e.Thresholds().Semantic)
	}
}

func TestEngine_OrderSensitive(t *testing.T) {
	// b overlaps both a and c enough to be rejected by either, while a and c
	// are far apart. Whichever arrives first decides what survives.
	a := "we could go hiking on saturday morning"
	b := "we could go hiking on saturday morning early"
	c := "we could go hiking on saturday morning early today"

	run := func(order ...string) int {
		e := NewEngine(nil, Thresholds{Jaccard: 0.85})
		for i, text := range order {
			e.Admit(cand(string(rune('a'+i)), text))
		}
		return len(e.Accepted())
	}

	if got := run(a, b, c); got != 2 {
		t.Errorf("a,b,c accepted %d, want 2", got)
	}
	if got := run(b, a, c); got != 1 {
		t.Errorf("b,a,c accepted %d, want 1", got)
	}
	if run(a, b, c) != run(a, b, c) {
		t.Error("same order must give the same result")
	}
}
