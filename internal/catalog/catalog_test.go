package catalog

import (
	"errors"
	"testing"

	"github.com/talgya/zoneforge/internal/entropy"
)

func TestMemoryOrderedLookup(t *testing.T) {
	m := NewMemory([]Unit{{ID: "c"}, {ID: "a"}, {ID: "b"}})
	units := m.Units()
	if units[0].ID != "a" || units[2].ID != "c" {
		t.Fatalf("units not sorted: %v", units)
	}
	if _, ok := m.Unit("b"); !ok {
		t.Error("lookup of b failed")
	}
	if _, ok := m.Unit("z"); ok {
		t.Error("lookup of z should fail")
	}
}

func TestResolveGuardWithinBudget(t *testing.T) {
	cat := Default()
	rng := entropy.NewStream(5)
	for _, strength := range []int{40, 100, 250, 600} {
		for i := 0; i < 25; i++ {
			enc, err := ResolveGuard(cat, rng, strength, LandOnly)
			if err != nil {
				t.Fatalf("strength %d: %v", strength, err)
			}
			if enc.Value > strength {
				t.Fatalf("strength %d: encounter value %d exceeds budget", strength, enc.Value)
			}
			if !enc.Leader.Leader {
				t.Fatalf("leader %s cannot lead", enc.Leader.Name)
			}
			slots := enc.Leader.Slots()
			for _, u := range enc.Units {
				if u.Water {
					t.Fatalf("water unit %s in land guard", u.Name)
				}
				slots += u.Slots()
			}
			if slots > GroupSlots {
				t.Fatalf("encounter uses %d slots", slots)
			}
		}
	}
}

func TestResolveGuardDeterministic(t *testing.T) {
	a, _ := ResolveGuard(Default(), entropy.NewStream(11), 300, nil)
	b, _ := ResolveGuard(Default(), entropy.NewStream(11), 300, nil)
	if a.Leader.ID != b.Leader.ID || a.Value != b.Value || len(a.Units) != len(b.Units) {
		t.Fatalf("same seed produced different encounters: %+v vs %+v", a, b)
	}
}

func TestResolveGuardNoFit(t *testing.T) {
	rng := entropy.NewStream(1)
	for _, strength := range []int{0, 10} {
		_, err := ResolveGuard(Default(), rng, strength, LandOnly)
		if !errors.Is(err, ErrNoFittingUnits) {
			t.Errorf("strength %d: expected ErrNoFittingUnits, got %v", strength, err)
		}
	}
}

func TestWeakestLeader(t *testing.T) {
	if v, ok := WeakestLeader(Default(), LandOnly); !ok || v != 35 {
		t.Errorf("land weakest = %d, %v; want 35", v, ok)
	}
	waterOnly := func(u Unit) bool { return u.Water }
	if v, ok := WeakestLeader(Default(), waterOnly); !ok || v != 200 {
		t.Errorf("water weakest = %d, %v; want 200", v, ok)
	}
	if _, ok := WeakestLeader(NewMemory(nil), nil); ok {
		t.Error("empty catalog has no leader")
	}
}
