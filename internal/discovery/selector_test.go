package discovery

import (
	"math/rand/v2"
	"testing"
)

func TestRandomSelector_Empty(t *testing.T) {
	s := NewRandomSelector(nil)
	for _, set := range [][]string{nil, {}} {
		if got, ok := s.Choose(set); ok || got != "" {
			t.Fatalf("Choose(%v) = %q, %v; want absent", set, got, ok)
		}
	}
}

func TestRandomSelector_Single(t *testing.T) {
	s := NewRandomSelector(nil)
	got, ok := s.Choose([]string{"http://only:1"})
	if !ok || got != "http://only:1" {
		t.Fatalf("Choose() = %q, %v", got, ok)
	}
}

func TestRandomSelector_Uniform(t *testing.T) {
	replicas := []string{"http://a:1", "http://b:1", "http://c:1", "http://d:1"}
	s := NewRandomSelector(rand.New(rand.NewPCG(7, 11)))

	const n = 40000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		got, ok := s.Choose(replicas)
		if !ok {
			t.Fatal("Choose() returned absent for a non-empty set")
		}
		counts[got]++
	}

	want := float64(n) / float64(len(replicas))
	for _, r := range replicas {
		dev := (float64(counts[r]) - want) / want
		if dev < -0.05 || dev > 0.05 {
			t.Errorf("replica %s chosen %d times, expected ~%.0f (deviation %.3f)", r, counts[r], want, dev)
		}
	}
}
