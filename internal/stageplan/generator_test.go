package stageplan

import (
	"reflect"
	"testing"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
)

func ceilings(s Suggestion) []*int {
	out := make([]*int, len(s.Stages))
	for i, st := range s.Stages {
		out[i] = st.MaxDailyCigarette
	}
	return out
}

func ceilingValues(t *testing.T, s Suggestion) []int {
	t.Helper()
	out := make([]int, len(s.Stages))
	for i, c := range ceilings(s) {
		if c == nil {
			t.Fatalf("stage %d has no ceiling", i)
		}
		out[i] = *c
	}
	return out
}

func TestGenerateTiers(t *testing.T) {
	tests := []struct {
		name          string
		baseline      Baseline
		wantStages    int
		wantCeilings  []int
		wantDurations []int
		wantTotal     int
	}{
		{
			name:          "light smoker gets two stages",
			baseline:      Baseline{CigaretteCount: 4, Frequency: models.FrequencyLight},
			wantStages:    2,
			wantCeilings:  []int{3, 0},
			wantDurations: []int{7, 7},
			wantTotal:     14,
		},
		{
			name:          "medium smoker gets three stages",
			baseline:      Baseline{CigaretteCount: 10, Frequency: models.FrequencyMedium},
			wantStages:    3,
			wantCeilings:  []int{5, 2, 0},
			wantDurations: []int{12, 11, 17},
			wantTotal:     40,
		},
		{
			name:          "low count heavy frequency still three stages",
			baseline:      Baseline{CigaretteCount: 3, Frequency: models.FrequencyHeavy},
			wantStages:    3,
			wantCeilings:  []int{2, 2, 0},
			wantDurations: []int{4, 4, 6},
			wantTotal:     14,
		},
		{
			name:          "medium frequency with high count stays at three stages",
			baseline:      Baseline{CigaretteCount: 30, Frequency: models.FrequencyMedium},
			wantStages:    3,
			wantCeilings:  []int{15, 2, 0},
			wantDurations: []int{26, 26, 38},
			wantTotal:     90,
		},
		{
			name:          "heavy smoker gets four stages",
			baseline:      Baseline{CigaretteCount: 20, Frequency: models.FrequencyHeavy},
			wantStages:    4,
			wantCeilings:  []int{14, 6, 1, 0},
			wantDurations: []int{14, 13, 13, 20},
			wantTotal:     60,
		},
		{
			name:          "zero count light clamps ceiling at zero",
			baseline:      Baseline{CigaretteCount: 0, Frequency: models.FrequencyLight},
			wantStages:    2,
			wantCeilings:  []int{0, 0},
			wantDurations: []int{7, 7},
			wantTotal:     14,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.baseline
			got := Generate(&b)
			if len(got.Stages) != tt.wantStages {
				t.Fatalf("stages = %d, want %d", len(got.Stages), tt.wantStages)
			}
			if c := ceilingValues(t, got); !reflect.DeepEqual(c, tt.wantCeilings) {
				t.Errorf("ceilings = %v, want %v", c, tt.wantCeilings)
			}
			if !reflect.DeepEqual(got.Durations, tt.wantDurations) {
				t.Errorf("durations = %v, want %v", got.Durations, tt.wantDurations)
			}
			if got.TotalDays != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.TotalDays, tt.wantTotal)
			}
		})
	}
}

func TestGenerateWithoutBaseline(t *testing.T) {
	got := Generate(nil)
	if len(got.Stages) != 3 {
		t.Fatalf("stages = %d, want 3", len(got.Stages))
	}
	if got.Stages[0].MaxDailyCigarette != nil {
		t.Errorf("first stage ceiling = %v, want unconstrained", *got.Stages[0].MaxDailyCigarette)
	}
	for _, st := range got.Stages[1:] {
		if st.MaxDailyCigarette == nil || *st.MaxDailyCigarette != 0 {
			t.Errorf("stage %q ceiling should be 0", st.Name)
		}
	}
	if !reflect.DeepEqual(got.Durations, []int{9, 9, 12}) {
		t.Errorf("durations = %v, want [9 9 12]", got.Durations)
	}
}

func TestTotalDays(t *testing.T) {
	tests := map[int]int{0: 14, 5: 14, 6: 32, 15: 50, 16: 48, 29: 87, 30: 90, 60: 90}
	for count, want := range tests {
		if got := TotalDays(count); got != want {
			t.Errorf("TotalDays(%d) = %d, want %d", count, got, want)
		}
	}
}

func TestDurationsSumAndLayoutIsContiguous(t *testing.T) {
	freqs := []models.Frequency{models.FrequencyLight, models.FrequencyMedium, models.FrequencyHeavy}
	start := clock.Date(2024, 12, 20)
	for count := 0; count <= 60; count++ {
		for _, f := range freqs {
			s := Generate(&Baseline{CigaretteCount: count, Frequency: f})
			sum := 0
			for i, d := range s.Durations {
				if d <= 0 {
					t.Fatalf("count=%d freq=%s: duration[%d] = %d, want positive", count, f, i, d)
				}
				sum += d
			}
			if sum != s.TotalDays {
				t.Fatalf("count=%d freq=%s: durations sum %d, want %d", count, f, sum, s.TotalDays)
			}

			planned := s.Layout(start)
			if !planned[0].StartDate.Equal(start) {
				t.Fatalf("first stage starts %v, want %v", planned[0].StartDate, start)
			}
			for i, p := range planned {
				if got := clock.SpanDays(p.StartDate, p.EndDate); got != p.Days {
					t.Fatalf("stage %d spans %d days, want %d", i, got, p.Days)
				}
				if i > 0 && !clock.AddDays(planned[i-1].EndDate, 1).Equal(p.StartDate) {
					t.Fatalf("count=%d freq=%s: gap or overlap between stage %d and %d", count, f, i-1, i)
				}
			}
			last := planned[len(planned)-1]
			if got := clock.SpanDays(start, last.EndDate); got != s.TotalDays {
				t.Fatalf("layout spans %d days, want %d", got, s.TotalDays)
			}
		}
	}
}

func TestSplitDurationEqualWeights(t *testing.T) {
	got := SplitDuration(11, 5)
	if !reflect.DeepEqual(got, []int{3, 2, 2, 2, 2}) {
		t.Errorf("SplitDuration(11, 5) = %v", got)
	}
	if SplitDuration(10, 0) != nil {
		t.Error("SplitDuration with no stages should be nil")
	}
}
