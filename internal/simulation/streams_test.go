package simulation

import "testing"

func TestStreams_PathSeedsDistinct(t *testing.T) {
	s := NewStreams(99)
	seen := make(map[uint64]int)
	for i := 0; i < 10000; i++ {
		seed := s.PathSeed(i)
		if prev, ok := seen[seed]; ok {
			t.Fatalf("paths %d and %d share seed %d", prev, i, seed)
		}
		seen[seed] = i
	}
}

func TestStreams_NormalRepeatable(t *testing.T) {
	a := NewStreams(5).Normal(3)
	b := NewStreams(5).Normal(3)
	for i := 0; i < 10; i++ {
		if x, y := a.Rand(), b.Rand(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestRandomSeed(t *testing.T) {
	a, err := RandomSeed()
	if err != nil {
		t.Fatalf("RandomSeed failed: %v", err)
	}
	b, err := RandomSeed()
	if err != nil {
		t.Fatalf("RandomSeed failed: %v", err)
	}
	if a == b {
		t.Errorf("two random seeds collided: %d", a)
	}
}
