package mastery

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestApply_CorrectAndIncorrectSteps(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.5})
	u := DefaultUpdater()

	adj, err := u.Apply(s, "A", true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !adj.Tracked {
		t.Fatal("expected tracked adjustment")
	}
	if math.Abs(adj.Delta()-DefaultCorrectStep) > 1e-9 {
		t.Errorf("correct delta = %v, want %v", adj.Delta(), DefaultCorrectStep)
	}

	adj, err = u.Apply(s, "A", false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if math.Abs(adj.Delta()-DefaultIncorrectStep) > 1e-9 {
		t.Errorf("incorrect delta = %v, want %v", adj.Delta(), DefaultIncorrectStep)
	}
}

func TestApply_SaturatesAtOne(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.98})

	adj, err := DefaultUpdater().Apply(s, "A", true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if adj.After != 1.0 {
		t.Errorf("After = %v, want 1.0", adj.After)
	}
}

func TestApply_SaturatesAtZero(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.01})

	adj, err := DefaultUpdater().Apply(s, "A", false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if adj.After != 0.0 {
		t.Errorf("After = %v, want 0.0", adj.After)
	}
}

func TestApply_UntrackedSkillIsNoop(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.5})

	adj, err := DefaultUpdater().Apply(s, "Ghost", true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if adj.Tracked {
		t.Error("expected untracked adjustment")
	}
	if s.Len() != 1 || s.Tracked("Ghost") {
		t.Error("untracked skill must not be added to state")
	}
	if got, _ := s.Get("A"); got != 0.5 {
		t.Errorf("other skill changed: %v", got)
	}
}

func TestApply_NonFiniteStep(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.5})
	u := Updater{CorrectStep: math.NaN(), IncorrectStep: -0.1}

	if _, err := u.Apply(s, "A", true); err == nil {
		t.Fatal("expected error for NaN step")
	}
	if got, _ := s.Get("A"); got != 0.5 {
		t.Errorf("value changed after failed apply: %v", got)
	}
}

func TestApply_StaysInBoundsUnderRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	u := DefaultUpdater()

	for run := 0; run < 50; run++ {
		s := newTestState(t, Entry{"A", rng.Float64()}, Entry{"B", rng.Float64()})
		for i := 0; i < 200; i++ {
			skill := "A"
			if rng.IntN(2) == 1 {
				skill = "B"
			}
			if _, err := u.Apply(s, skill, rng.IntN(3) > 0); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			for _, e := range s.Entries() {
				if e.Probability < 0 || e.Probability > 1 {
					t.Fatalf("run %d step %d: %s = %v out of bounds", run, i, e.Skill, e.Probability)
				}
			}
		}
	}
}
