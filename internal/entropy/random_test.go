package entropy

import "testing"

func TestStreamDeterministic(t *testing.T) {
	a := NewStream(42)
	b := NewStream(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Intn(1000), b.Intn(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}

	a.Reseed(7)
	first := a.Float64()
	a.Reseed(7)
	if again := a.Float64(); again != first {
		t.Errorf("reseed did not restart sequence: %v vs %v", first, again)
	}
	if a.Seed() != 7 {
		t.Errorf("Seed() = %d, want 7", a.Seed())
	}
}

func TestIntRange(t *testing.T) {
	s := NewStream(1)
	for i := 0; i < 500; i++ {
		v := s.IntRange(3, 5)
		if v < 3 || v > 5 {
			t.Fatalf("IntRange(3,5) = %d", v)
		}
		w := s.IntRange(9, 2)
		if w < 2 || w > 9 {
			t.Fatalf("IntRange(9,2) = %d", w)
		}
	}
	if got := s.IntRange(4, 4); got != 4 {
		t.Errorf("IntRange(4,4) = %d", got)
	}
	if got := s.Intn(0); got != 0 {
		t.Errorf("Intn(0) = %d", got)
	}
}

func TestComposition(t *testing.T) {
	s := NewStream(99)
	tests := []struct {
		total, parts int
	}{
		{0, 1},
		{10, 1},
		{10, 3},
		{57, 6},
		{3, 8},
	}
	for _, tt := range tests {
		for round := 0; round < 20; round++ {
			parts := s.Composition(tt.total, tt.parts)
			if len(parts) != tt.parts {
				t.Fatalf("Composition(%d,%d) returned %d parts", tt.total, tt.parts, len(parts))
			}
			sum := 0
			for _, p := range parts {
				if p < 0 {
					t.Fatalf("negative part in %v", parts)
				}
				sum += p
			}
			if sum != tt.total {
				t.Fatalf("Composition(%d,%d) = %v sums to %d", tt.total, tt.parts, parts, sum)
			}
		}
	}
	if s.Composition(5, 0) != nil {
		t.Error("zero parts should return nil")
	}
}

func TestNewSeedPositive(t *testing.T) {
	for i := 0; i < 10; i++ {
		if NewSeed() < 0 {
			t.Fatal("NewSeed returned a negative seed")
		}
	}
}
