package mastery

import (
	"math"
	"testing"
	"time"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestRecord_FirstAttemptSeeds(t *testing.T) {
	s := NewSummary("u1", "networking").Record(0.4, 0.3, now)

	if s.Accuracy != 0.4 {
		t.Errorf("Accuracy = %v, want 0.4", s.Accuracy)
	}
	if s.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", s.Attempts)
	}
	if !s.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", s.UpdatedAt, now)
	}
}

func TestRecord_WeightsNewestAttempt(t *testing.T) {
	s := NewSummary("u1", "networking")
	s = s.Record(1.0, 0.3, now)
	s = s.Record(0.0, 0.3, now)

	// 0.3*0 + 0.7*1
	if math.Abs(s.Accuracy-0.7) > 1e-12 {
		t.Errorf("Accuracy = %v, want 0.7", s.Accuracy)
	}

	s = s.Record(1.0, 0.3, now)
	// 0.3*1 + 0.7*0.7
	if math.Abs(s.Accuracy-0.79) > 1e-12 {
		t.Errorf("Accuracy = %v, want 0.79", s.Accuracy)
	}
}

func TestRecord_ClampsAndDefaults(t *testing.T) {
	s := NewSummary("u1", "d").Record(1.7, 0, now)
	if s.Accuracy != 1 {
		t.Errorf("Accuracy = %v, want 1 after clamping", s.Accuracy)
	}

	s = s.Record(-3, -1, now)
	want := (1 - DefaultRecencyWeight) * 1
	if math.Abs(s.Accuracy-want) > 1e-12 {
		t.Errorf("Accuracy = %v, want %v", s.Accuracy, want)
	}
}

func TestRecord_DoesNotMutateReceiver(t *testing.T) {
	s := NewSummary("u1", "d")
	_ = s.Record(1, 0.3, now)
	if s.Attempts != 0 || s.Accuracy != 0 {
		t.Errorf("receiver mutated: %+v", s)
	}
}

func TestKnown(t *testing.T) {
	s := Summary{Attempts: 2}
	if s.Known(3) {
		t.Error("2 attempts known with min 3")
	}
	s.Attempts = 3
	if !s.Known(3) {
		t.Error("3 attempts unknown with min 3")
	}
}
