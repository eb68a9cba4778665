// Package api exposes the quit-coach HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/QuitCoachAPI/internal/service"
)

type Deps struct {
	Addr          string
	Timeout       time.Duration
	Log           *slog.Logger
	Verifier      *Verifier
	Users         *service.UserService
	Memberships   *service.MembershipService
	Baselines     *service.BaselineService
	Plans         *service.PlanService
	Progress      *service.ProgressService
	Badges        *service.BadgeService
	Coaches       *service.CoachService
	Notifications *service.NotificationService
}

type Server struct {
	addr          string
	timeout       time.Duration
	log           *slog.Logger
	verifier      *Verifier
	users         *service.UserService
	memberships   *service.MembershipService
	baselines     *service.BaselineService
	plans         *service.PlanService
	progress      *service.ProgressService
	badges        *service.BadgeService
	coaches       *service.CoachService
	notifications *service.NotificationService
	router        *chi.Mux
}

func NewServer(deps Deps) *Server {
	if deps.Timeout <= 0 {
		deps.Timeout = 15 * time.Second
	}
	s := &Server{
		addr:          deps.Addr,
		timeout:       deps.Timeout,
		log:           deps.Log,
		verifier:      deps.Verifier,
		users:         deps.Users,
		memberships:   deps.Memberships,
		baselines:     deps.Baselines,
		plans:         deps.Plans,
		progress:      deps.Progress,
		badges:        deps.Badges,
		coaches:       deps.Coaches,
		notifications: deps.Notifications,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/users/me", s.handleMe)
		r.Put("/users/me/telegram", s.handleLinkTelegram)
		r.Get("/users/me/badges", s.handleMyBadges)

		r.Post("/smoking-status", s.handleRecordStatus)
		r.Get("/smoking-status/latest", s.handleLatestStatus)

		r.Route("/quit-plans", func(r chi.Router) {
			r.Get("/", s.handleListPlans)
			r.Post("/", s.handleCreatePlan)
			r.Post("/goal-draft", s.handleGoalDraft)
			r.Route("/{planId}", func(r chi.Router) {
				r.Get("/", s.handleGetPlan)
				r.Get("/stage-suggestion", s.handleStageSuggestion)
				r.Post("/coach", s.handleAssignCoach)
				r.Get("/stages", s.handleListStages)
				r.Put("/stages/{stageId}", s.handleUpdateStage)
				r.Post("/stages/{stageId}/progress", s.handleRecordProgress)
				r.Get("/stages/{stageId}/progress", s.handleListProgress)
			})
		})

		r.Get("/coaches", s.handleListCoaches)
		r.Get("/badges", s.handleListBadges)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/{id}/read", s.handleMarkRead)

		r.Group(func(admin chi.Router) {
			admin.Use(requireAdmin)
			admin.Post("/badges", s.handleCreateBadge)
			admin.Post("/admin/memberships", s.handleGrantMembership)
			admin.Put("/admin/coaches/{userId}", s.handleRegisterCoach)
		})
	})

	s.router = r
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout + 5*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}
