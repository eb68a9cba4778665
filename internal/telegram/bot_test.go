package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/service"
)

func intPtr(v int) *int { return &v }

func TestParseLogArgs(t *testing.T) {
	tests := []struct {
		in      string
		count   int
		note    string
		wantErr bool
	}{
		{in: "3", count: 3},
		{in: "  0  ", count: 0},
		{in: "2 stressful  day at work", count: 2, note: "stressful day at work"},
		{in: "", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "three", wantErr: true},
	}
	for _, tt := range tests {
		count, note, err := parseLogArgs(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLogArgs(%q) accepted bad input", tt.in)
			}
			continue
		}
		if err != nil || count != tt.count || note != tt.note {
			t.Errorf("parseLogArgs(%q) = %d, %q, %v", tt.in, count, note, err)
		}
	}
}

func TestCeilingText(t *testing.T) {
	if got := ceilingText(nil); got != "no daily limit" {
		t.Errorf("nil ceiling = %q", got)
	}
	if got := ceilingText(intPtr(0)); got != "goal: smoke-free" {
		t.Errorf("zero ceiling = %q", got)
	}
	if got := ceilingText(intPtr(7)); got != "limit: 7" {
		t.Errorf("ceiling 7 = %q", got)
	}
}

func TestCurrentStage(t *testing.T) {
	views := []service.StageView{
		{QuitStage: models.QuitStage{ID: 1}},
		{QuitStage: models.QuitStage{ID: 2}, IsCurrent: true},
	}
	if got := currentStage(views); got == nil || got.ID != 2 {
		t.Fatalf("currentStage() = %+v", got)
	}
	if got := currentStage(views[:1]); got != nil {
		t.Fatalf("currentStage() without current = %+v", got)
	}
}

func TestFormatPlanMarksCurrentStage(t *testing.T) {
	plan := &models.QuitPlan{Goal: "Breathe easier", StartDate: clock.Date(2024, 3, 1)}
	views := []service.StageView{
		{QuitStage: models.QuitStage{Position: 1, Name: "Reduce", Status: models.StageCompleted, StartDate: clock.Date(2024, 3, 1), EndDate: clock.Date(2024, 3, 7), MaxDailyCigarette: intPtr(5)}, TotalDays: 7, DaysRecorded: 7},
		{QuitStage: models.QuitStage{Position: 2, Name: "Quit", Status: models.StageInProgress, StartDate: clock.Date(2024, 3, 8), EndDate: clock.Date(2024, 3, 14), MaxDailyCigarette: intPtr(0)}, TotalDays: 7, DaysRecorded: 2, IsCurrent: true},
	}
	out := formatPlan(plan, views)
	for _, want := range []string{"Goal: Breathe easier", "Started: 2024-03-01", "  1. Reduce [completed]", "> 2. Quit [in_progress]", "goal: smoke-free, 2/7 days logged"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatPlan() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatResult(t *testing.T) {
	warned := &service.RecordResult{Warning: true, Message: "Over the limit (1/3)"}
	if got := formatResult(warned); got != warned.Message {
		t.Errorf("warning result = %q", got)
	}

	done := &service.RecordResult{
		Record: &models.ProgressRecord{CigaretteCount: 0},
		Stage:  &models.QuitStage{Name: "Quit", Status: models.StageCompleted},
		Plan:   &models.QuitPlan{Status: models.PlanCompleted},
		NewBadges: []models.UserBadge{
			{Badge: &models.Badge{Name: "First smoke-free day"}},
		},
	}
	out := formatResult(done)
	for _, want := range []string{`Logged 0 cigarettes for "Quit".`, "Stage completed!", "whole quit plan", "New badge: First smoke-free day"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatResult() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatBadges(t *testing.T) {
	if got := formatBadges(nil); !strings.HasPrefix(got, "No badges yet") {
		t.Errorf("empty badges = %q", got)
	}
	owned := []models.UserBadge{
		{BadgeID: 4, GrantedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), Badge: &models.Badge{Name: "One week"}},
		{BadgeID: 9, GrantedAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)},
	}
	out := formatBadges(owned)
	if !strings.Contains(out, "- One week (2024-03-02)") || !strings.Contains(out, "- badge #9 (2024-03-05)") {
		t.Errorf("formatBadges() = %q", out)
	}
}

func TestStateManagerReturnsCopies(t *testing.T) {
	m := NewStateManager()
	if got := m.Get(42); got.State != StateIdle {
		t.Fatalf("unknown chat state = %v", got.State)
	}
	m.Set(42, &Session{State: StateAwaitingCount, PlanID: 1, StageID: 2})
	s := m.Get(42)
	s.StageID = 99
	if again := m.Get(42); again.StageID != 2 || again.State != StateAwaitingCount {
		t.Fatalf("stored session changed through copy: %+v", again)
	}
	m.Reset(42)
	if got := m.Get(42); got.State != StateIdle {
		t.Fatalf("state after reset = %v", got.State)
	}
}
