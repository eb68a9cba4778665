package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/QuitCoachAPI/internal/api"
	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/config"
	"github.com/digkill/QuitCoachAPI/internal/database"
	"github.com/digkill/QuitCoachAPI/internal/jobs"
	"github.com/digkill/QuitCoachAPI/internal/repository"
	"github.com/digkill/QuitCoachAPI/internal/service"
	"github.com/digkill/QuitCoachAPI/internal/storage"
	"github.com/digkill/QuitCoachAPI/internal/telegram"
	"github.com/digkill/QuitCoachAPI/pkg/logger"
)

const reminderCheckInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	zone, err := clock.ParseZone(cfg.CivilTimezone)
	if err != nil {
		log.Fatalf("civil timezone: %v", err)
	}
	cal := clock.New(zone)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	statusRepo := repository.NewSmokingStatusRepository(db)
	planRepo := repository.NewPlanRepository(db)
	stageRepo := repository.NewStageRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	coachRepo := repository.NewCoachRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var uploader service.Uploader
	if cfg.S3Enabled() {
		u, err := storage.NewUploader(storage.ConfigFrom(cfg))
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = u
	} else {
		logr.Info("s3 not configured, plan reports will not be archived")
	}

	notifier := service.NewNotificationService(notificationRepo, userRepo, logr)
	userService := service.NewUserService(userRepo)
	membershipService := service.NewMembershipService(cal, membershipRepo, userRepo)
	baselineService := service.NewBaselineService(statusRepo, planRepo)
	badgeService := service.NewBadgeService(badgeRepo, progressRepo, notifier, logr)
	coachService := service.NewCoachService(db, coachRepo, planRepo, userRepo, membershipService, notifier, logr)
	planService := service.NewPlanService(service.PlanServiceDeps{
		DB:          db,
		Calendar:    cal,
		Plans:       planRepo,
		Stages:      stageRepo,
		Statuses:    statusRepo,
		Progress:    progressRepo,
		Memberships: membershipService,
		Notifier:    notifier,
		Log:         logr,
	})
	var archiver *service.ReportArchiver
	if uploader != nil {
		archiver = service.NewReportArchiver(planRepo, stageRepo, progressRepo, uploader, logr)
	}
	progressService := service.NewProgressService(service.ProgressServiceDeps{
		Settings:    service.SettingsFromConfig(cfg),
		Calendar:    cal,
		Plans:       planRepo,
		Stages:      stageRepo,
		Progress:    progressRepo,
		Statuses:    statusRepo,
		Memberships: membershipService,
		Badges:      badgeService,
		Archiver:    archiver,
		Notifier:    notifier,
		Log:         logr,
	})

	verifier, err := api.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("jwt verifier: %v", err)
	}
	apiServer := api.NewServer(api.Deps{
		Addr:          cfg.HTTPListenAddr,
		Timeout:       cfg.RequestTimeout,
		Log:           logr,
		Verifier:      verifier,
		Users:         userService,
		Memberships:   membershipService,
		Baselines:     baselineService,
		Plans:         planService,
		Progress:      progressService,
		Badges:        badgeService,
		Coaches:       coachService,
		Notifications: notifier,
	})

	sweeper := jobs.NewStageSkipSweeper(cal, stageRepo, planRepo, progressRepo, notifier, logr)
	reminder := jobs.NewDailyReminder(cal, cfg.ReminderHour, stageRepo, planRepo, progressRepo, notifier, logr)

	var wg sync.WaitGroup
	runAsync := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("component stopped", "component", name, "err", err)
				stop()
			}
		}()
	}

	runAsync("stage-sweeper", jobs.NewRunner("stage-sweeper", cfg.SweepInterval, sweeper, logr).Run)
	runAsync("daily-reminder", jobs.NewRunner("daily-reminder", reminderCheckInterval, reminder, logr).Run)

	if cfg.TelegramEnabled() {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("telegram bot: %v", err)
		}
		bot := telegram.NewBot(botAPI, logr, userService, planService, progressService, badgeService)
		notifier.SetSender(bot)
		runAsync("telegram-bot", bot.Run)
	} else {
		logr.Info("telegram not configured, notifications stay in-app")
	}

	runAsync("api", apiServer.Run)

	<-ctx.Done()
	logr.Info("shutting down")
	wg.Wait()
}
