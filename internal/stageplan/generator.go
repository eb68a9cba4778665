// Package stageplan turns a smoking baseline into an ordered set of quit
// stages with daily cigarette ceilings and day durations.
package stageplan

import (
	"math"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
)

// FallbackTotalDays is used when the user has no baseline to size the plan.
const FallbackTotalDays = 30

var ratios = map[int][]int{
	2: {1, 1},
	3: {2, 2, 3},
	4: {2, 2, 2, 3},
}

type Baseline struct {
	CigaretteCount int
	Frequency      models.Frequency
}

type StageTemplate struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	MaxDailyCigarette *int   `json:"max_daily_cigarette"`
}

type Suggestion struct {
	Stages    []StageTemplate `json:"stages"`
	Durations []int           `json:"durations"`
	TotalDays int             `json:"total_days"`
}

// PlannedStage is a template placed on the calendar. EndDate is inclusive.
type PlannedStage struct {
	StageTemplate
	Days      int       `json:"days"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Generate builds the stage suggestion for a baseline. A nil baseline yields
// the generic three-stage template.
func Generate(b *Baseline) Suggestion {
	if b == nil {
		stages := []StageTemplate{
			{Name: "Prepare", Description: "Track your smoking honestly and notice your triggers.", MaxDailyCigarette: nil},
			{Name: "Quit", Description: "Stop smoking completely.", MaxDailyCigarette: ceiling(0)},
			{Name: "Maintain", Description: "Stay smoke-free and guard against relapse.", MaxDailyCigarette: ceiling(0)},
		}
		return Suggestion{Stages: stages, Durations: SplitDuration(FallbackTotalDays, len(stages)), TotalDays: FallbackTotalDays}
	}

	count := b.CigaretteCount
	if count < 0 {
		count = 0
	}

	var stages []StageTemplate
	switch {
	case count <= 5 && b.Frequency == models.FrequencyLight:
		stages = []StageTemplate{
			{Name: "Reduce", Description: "Smoke at least one cigarette less than usual each day.", MaxDailyCigarette: ceiling(count - 1)},
			{Name: "Complete cessation", Description: "Stop smoking completely.", MaxDailyCigarette: ceiling(0)},
		}
	case count <= 15 || b.Frequency == models.FrequencyMedium:
		stages = []StageTemplate{
			{Name: "Cut down", Description: "Halve your daily cigarettes.", MaxDailyCigarette: ceiling(int(math.Ceil(float64(count) / 2)))},
			{Name: "Quit", Description: "Keep to two cigarettes a day at most while you quit.", MaxDailyCigarette: ceiling(2)},
			{Name: "Maintain", Description: "Stay smoke-free.", MaxDailyCigarette: ceiling(0)},
		}
	default:
		stages = []StageTemplate{
			{Name: "Reduce to 70%", Description: "Cut your daily cigarettes to 70% of your baseline.", MaxDailyCigarette: ceiling(int(math.Round(float64(count) * 0.7)))},
			{Name: "Reduce to 30%", Description: "Cut your daily cigarettes to 30% of your baseline.", MaxDailyCigarette: ceiling(int(math.Round(float64(count) * 0.3)))},
			{Name: "Quit", Description: "No more than one cigarette a day.", MaxDailyCigarette: ceiling(1)},
			{Name: "Sustain", Description: "Stay smoke-free for good.", MaxDailyCigarette: ceiling(0)},
		}
	}

	total := TotalDays(count)
	return Suggestion{Stages: stages, Durations: SplitDuration(total, len(stages)), TotalDays: total}
}

// TotalDays is the whole plan length for a daily cigarette count.
func TotalDays(count int) int {
	switch {
	case count <= 5:
		return 14
	case count <= 15:
		return min(60, 30+(count-5)*2)
	default:
		return min(90, count*3)
	}
}

// SplitDuration divides total days across n stages by the ratio vector for n,
// flooring each share and handing leftover days to the earliest stages.
func SplitDuration(total, n int) []int {
	if n <= 0 {
		return nil
	}
	weights, ok := ratios[n]
	if !ok {
		weights = make([]int, n)
		for i := range weights {
			weights[i] = 1
		}
	}
	sum := 0
	for _, w := range weights {
		sum += w
	}

	durations := make([]int, n)
	assigned := 0
	for i, w := range weights {
		durations[i] = total * w / sum
		assigned += durations[i]
	}
	for i := 0; assigned < total; i = (i + 1) % n {
		durations[i]++
		assigned++
	}
	return durations
}

// Layout places the stages back to back starting at the civil date start.
func (s Suggestion) Layout(start time.Time) []PlannedStage {
	planned := make([]PlannedStage, 0, len(s.Stages))
	cursor := start
	for i, tpl := range s.Stages {
		days := s.Durations[i]
		end := clock.AddDays(cursor, days-1)
		planned = append(planned, PlannedStage{
			StageTemplate: tpl,
			Days:          days,
			StartDate:     cursor,
			EndDate:       end,
		})
		cursor = clock.AddDays(end, 1)
	}
	return planned
}

func ceiling(n int) *int {
	if n < 0 {
		n = 0
	}
	return &n
}
