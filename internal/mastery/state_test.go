package mastery

import (
	"errors"
	"math"
	"testing"
)

func newTestState(t *testing.T, entries ...Entry) *State {
	t.Helper()
	s, err := NewState(entries)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func TestNewState_ClampsInitialValues(t *testing.T) {
	s := newTestState(t, Entry{"A", 1.4}, Entry{"B", -0.2}, Entry{"C", 0.3})

	tests := []struct {
		skill string
		want  float64
	}{
		{"A", 1.0},
		{"B", 0.0},
		{"C", 0.3},
	}
	for _, tt := range tests {
		got, err := s.Get(tt.skill)
		if err != nil {
			t.Fatalf("Get(%q): %v", tt.skill, err)
		}
		if got != tt.want {
			t.Errorf("Get(%q) = %v, want %v", tt.skill, got, tt.want)
		}
	}
}

func TestNewState_RejectsDuplicates(t *testing.T) {
	_, err := NewState([]Entry{{"A", 0.1}, {"A", 0.2}})
	if err == nil {
		t.Fatal("expected error for duplicate skill")
	}
}

func TestNewState_RejectsNaN(t *testing.T) {
	_, err := NewState([]Entry{{"A", math.NaN()}})
	if !errors.Is(err, ErrInvalidProbability) {
		t.Fatalf("err = %v, want ErrInvalidProbability", err)
	}
}

func TestGet_UnknownSkill(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.5})
	_, err := s.Get("Z")
	if !errors.Is(err, ErrUnknownSkill) {
		t.Fatalf("err = %v, want ErrUnknownSkill", err)
	}
}

func TestSet_Clamps(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.5})

	if err := s.Set("A", 7); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := s.Get("A"); got != 1 {
		t.Errorf("after Set(7) = %v, want 1", got)
	}

	if err := s.Set("A", -3); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := s.Get("A"); got != 0 {
		t.Errorf("after Set(-3) = %v, want 0", got)
	}
}

func TestSet_NonFiniteLeavesValue(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.42})

	for _, p := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := s.Set("A", p)
		if !errors.Is(err, ErrInvalidProbability) {
			t.Errorf("Set(%v) err = %v, want ErrInvalidProbability", p, err)
		}
		if got, _ := s.Get("A"); got != 0.42 {
			t.Errorf("after Set(%v) = %v, want 0.42", p, got)
		}
	}
}

func TestSet_UnknownSkill(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.5})
	if err := s.Set("Z", 0.5); !errors.Is(err, ErrUnknownSkill) {
		t.Fatalf("err = %v, want ErrUnknownSkill", err)
	}
	if s.Tracked("Z") {
		t.Error("Set on unknown skill must not start tracking it")
	}
}

func TestSnapshot_AscendingAndStable(t *testing.T) {
	s := newTestState(t,
		Entry{"Programacion", 0.6},
		Entry{"RedesNeuronales", 0.2},
		Entry{"SistemasDigitales", 0.6},
		Entry{"Electronica", 0.2},
	)

	got := s.Snapshot()
	want := []string{"RedesNeuronales", "Electronica", "Programacion", "SistemasDigitales"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Skill != want[i] {
			t.Errorf("snapshot[%d] = %q, want %q", i, got[i].Skill, want[i])
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Probability > got[i].Probability {
			t.Errorf("snapshot not ascending at %d: %v > %v", i, got[i-1].Probability, got[i].Probability)
		}
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := newTestState(t, Entry{"A", 0.5})
	snap := s.Snapshot()
	snap[0].Probability = 0.99

	if got, _ := s.Get("A"); got != 0.5 {
		t.Errorf("state mutated through snapshot: %v", got)
	}
}

func TestResolveBand(t *testing.T) {
	tests := []struct {
		p    float64
		want Band
	}{
		{0, BandWeak},
		{0.39, BandWeak},
		{0.4, BandDeveloping},
		{0.6, BandProficient},
		{0.8, BandStrong},
		{1, BandStrong},
	}
	for _, tt := range tests {
		if got := ResolveBand(tt.p); got != tt.want {
			t.Errorf("ResolveBand(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
