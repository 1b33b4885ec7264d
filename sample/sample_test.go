// SPDX-License-Identifier: EPL-2.0

package sample

import "testing"

type fakeSample struct{ id int }

func (fakeSample) SampleRate() int { return 44100 }
func (fakeSample) Channels() int   { return 1 }
func (fakeSample) Streamed() bool  { return false }

func TestSet_Select_CrossesZero(t *testing.T) {
	t.Parallel()

	a, b, c := fakeSample{1}, fakeSample{2}, fakeSample{3}
	s := NewSet([]Entry{
		{Sample: a, Probability: 1},
		{Sample: b, Probability: 2},
		{Sample: c, Probability: 3},
	})

	if got := s.Total(); got != 6 {
		t.Fatalf("Total() = %v, want 6", got)
	}

	tests := []struct {
		r    float64
		want Sample
	}{
		{0, a},
		{0.999, a},
		{1.0, b},
		{2.999, b},
		{3.0, c},
		{5.999, c},
	}
	for _, tt := range tests {
		if got := s.Select(tt.r); got != tt.want {
			t.Errorf("Select(%v) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestSet_Select_RoundingFallsBackToLast(t *testing.T) {
	t.Parallel()

	a, b := fakeSample{1}, fakeSample{2}
	s := NewSet([]Entry{
		{Sample: a, Probability: 1},
		{Sample: b, Probability: 1},
	})

	// r == Total() shouldn't happen from a correct Uniform[0, Total())
	// draw, but floating rounding can produce it; must not panic and
	// must return the last entry.
	if got := s.Select(2.0); got != b {
		t.Errorf("Select(Total()) = %v, want last entry %v", got, b)
	}
}

func TestSet_Select_Empty(t *testing.T) {
	t.Parallel()

	s := NewSet(nil)
	if got := s.Select(0); got != nil {
		t.Errorf("Select() on empty set = %v, want nil", got)
	}
}
