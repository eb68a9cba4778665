package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/api"
	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/config"
	"github.com/digkill/QuitCoachAPI/internal/database"
	"github.com/digkill/QuitCoachAPI/internal/jobs"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/repository"
	"github.com/digkill/QuitCoachAPI/internal/service"
	"github.com/digkill/QuitCoachAPI/internal/stageplan"
)

// openDB loads the environment config and returns a migrated connection.
func openDB(ctx context.Context) (config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		db.Close()
		return config.Config{}, nil, err
	}
	return cfg, db, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(rc *runContext) error {
	ctx, stop := signalContext()
	defer stop()
	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Printf("schema is up to date (%s)\n", cfg.DBDriver)
	return nil
}

type SeedBadgesCmd struct{}

func (c *SeedBadgesCmd) Run(rc *runContext) error {
	ctx, stop := signalContext()
	defer stop()
	_, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	badges := service.NewBadgeService(repository.NewBadgeRepository(db), repository.NewProgressRepository(db), nil, rc.log)
	created, err := badges.SeedDefaults(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created %d of %d default badges\n", created, len(service.DefaultBadges))
	return nil
}

type PreviewCmd struct {
	Count     int    `help:"Cigarettes smoked per day; 0 means no baseline." default:"0"`
	Frequency string `help:"Smoking frequency." enum:"light,medium,heavy" default:"medium"`
	Start     string `help:"First day of the plan (YYYY-MM-DD); defaults to today."`
}

func (c *PreviewCmd) Run(rc *runContext) error {
	now := time.Now()
	start := clock.Date(now.Year(), now.Month(), now.Day())
	if c.Start != "" {
		d, err := clock.ParseDate(c.Start)
		if err != nil {
			return fmt.Errorf("invalid --start %q: want YYYY-MM-DD", c.Start)
		}
		start = d
	}

	var baseline *stageplan.Baseline
	if c.Count > 0 {
		baseline = &stageplan.Baseline{CigaretteCount: c.Count, Frequency: models.Frequency(c.Frequency)}
	}
	suggestion := stageplan.Generate(baseline)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tSTAGE\tFROM\tTO\tDAYS\tDAILY LIMIT\n")
	for i, st := range suggestion.Layout(start) {
		limit := "-"
		if st.MaxDailyCigarette != nil {
			limit = fmt.Sprint(*st.MaxDailyCigarette)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", i+1, st.Name, clock.FormatDate(st.StartDate), clock.FormatDate(st.EndDate), st.Days, limit)
	}
	fmt.Fprintf(w, "\ttotal\t\t\t%d\t\n", suggestion.TotalDays)
	return w.Flush()
}

type SweepCmd struct{}

func (c *SweepCmd) Run(rc *runContext) error {
	ctx, stop := signalContext()
	defer stop()
	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	zone, err := clock.ParseZone(cfg.CivilTimezone)
	if err != nil {
		return err
	}
	userRepo := repository.NewUserRepository(db)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), userRepo, rc.log)
	sweeper := jobs.NewStageSkipSweeper(clock.New(zone), repository.NewStageRepository(db), repository.NewPlanRepository(db), repository.NewProgressRepository(db), notifier, rc.log)
	skipped, err := sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("skipped %d stage(s)\n", skipped)
	return nil
}

type TokenCmd struct {
	User   int64         `help:"User id placed in the subject claim." required:""`
	Role   string        `help:"Role claim." enum:"member,coach,admin" default:"member"`
	Email  string        `help:"Email claim."`
	TTL    time.Duration `help:"Token lifetime." default:"24h"`
	Secret string        `help:"HS256 signing secret." env:"JWT_SECRET" required:""`
}

func (c *TokenCmd) Run(rc *runContext) error {
	tok, err := api.IssueToken(c.Secret, c.User, models.Role(c.Role), c.Email, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
