package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
	"github.com/digkill/QuitCoachAPI/internal/service"
)

// DailyReminder nudges users whose current stage has no record for today.
// It fires at most once per civil day, on the first tick at or after hour.
type DailyReminder struct {
	cal      *clock.Calendar
	hour     int
	stages   *repository.StageRepository
	plans    *repository.PlanRepository
	progress *repository.ProgressRepository
	notifier *service.NotificationService
	log      *slog.Logger

	mu      sync.Mutex
	lastRun time.Time
}

func NewDailyReminder(cal *clock.Calendar, hour int, stages *repository.StageRepository, plans *repository.PlanRepository, progress *repository.ProgressRepository, notifier *service.NotificationService, log *slog.Logger) *DailyReminder {
	return &DailyReminder{cal: cal, hour: hour, stages: stages, plans: plans, progress: progress, notifier: notifier, log: log}
}

// Remind sends today's reminders if they are due and returns how many went out.
func (r *DailyReminder) Remind(ctx context.Context) (int, error) {
	today := r.cal.Today()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cal.Hour() < r.hour || r.lastRun.Equal(today) {
		return 0, nil
	}

	stages, err := r.stages.ListActiveOn(ctx, today)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, st := range stages {
		logged, err := r.progress.ExistsOnDay(ctx, st.ID, today)
		if err != nil {
			return sent, err
		}
		if logged {
			continue
		}
		plan, err := r.plans.GetByID(ctx, st.PlanID)
		if err != nil {
			return sent, err
		}
		if plan == nil {
			continue
		}
		r.notifier.Emit(ctx, plan.UserID, models.NotifyReminder, reminderText(st))
		sent++
	}
	r.lastRun = today
	r.log.Info("daily reminders sent", "count", sent, "day", clock.FormatDate(today))
	return sent, nil
}

func reminderText(st models.QuitStage) string {
	if st.MaxDailyCigarette == nil {
		return fmt.Sprintf("Don't forget to log today's progress for %q.", st.Name)
	}
	if *st.MaxDailyCigarette == 0 {
		return fmt.Sprintf("Don't forget to log today's progress for %q. Today's goal: smoke-free.", st.Name)
	}
	return fmt.Sprintf("Don't forget to log today's progress for %q. Today's limit: %d cigarettes.", st.Name, *st.MaxDailyCigarette)
}

func (r *DailyReminder) Run(ctx context.Context) error {
	_, err := r.Remind(ctx)
	return err
}
