package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/service"
)

type smokingStatusRequest struct {
	CigaretteCount   int              `json:"cigarette_count"`
	PricePerPack     float64          `json:"price_per_pack"`
	SuctionFrequency models.Frequency `json:"suction_frequency"`
}

type goalDraftRequest struct {
	Goal    string `json:"goal"`
	Reasons string `json:"reasons"`
}

type createPlanRequest struct {
	StartDate string `json:"start_date"`
}

type updateStageRequest struct {
	Name              *string             `json:"name"`
	Description       *string             `json:"description"`
	StartDate         *string             `json:"start_date"`
	EndDate           *string             `json:"end_date"`
	Status            *models.StageStatus `json:"status"`
	MaxDailyCigarette *int                `json:"max_daily_cigarette"`
	ClearCeiling      bool                `json:"clear_ceiling"`
}

type progressRequest struct {
	CigaretteCount *int   `json:"cigarette_count"`
	Note           string `json:"note"`
}

type assignCoachRequest struct {
	CoachID int64 `json:"coach_id"`
}

func (s *Server) handleRecordStatus(w http.ResponseWriter, r *http.Request) {
	var req smokingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	status, err := s.baselines.RecordStatus(r.Context(), s.actor(r).UserID, service.SmokingStatusInput{
		CigaretteCount:   req.CigaretteCount,
		PricePerPack:     req.PricePerPack,
		SuctionFrequency: req.SuctionFrequency,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func (s *Server) handleLatestStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.baselines.LatestStatus(r.Context(), s.actor(r).UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGoalDraft(w http.ResponseWriter, r *http.Request) {
	var req goalDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	draft, err := s.baselines.SaveGoalDraft(r.Context(), s.actor(r).UserID, req.Goal, req.Reasons)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	detail, err := s.plans.Create(r.Context(), s.actor(r).UserID, req.StartDate)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListForUser(r.Context(), s.actor(r).UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	plan, err := s.plans.Authorize(r.Context(), s.actor(r), planID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleStageSuggestion previews the stages a new plan would get. The path
// segment names the user whose baseline is used; only that user or an admin
// may ask.
func (s *Server) handleStageSuggestion(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "planId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	actor := s.actor(r)
	if actor.UserID != userID && !actor.IsAdmin() {
		writeMessage(w, http.StatusForbidden, "cannot preview another user's plan")
		return
	}
	var start *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("start_date")); raw != "" {
		d, err := clock.ParseDate(raw)
		if err != nil {
			s.respondError(w, r, &service.ValidationError{Field: "start_date", Message: "must be YYYY-MM-DD"})
			return
		}
		start = &d
	}
	preview, err := s.plans.Preview(r.Context(), userID, start)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.plans.Authorize(r.Context(), s.actor(r), planID); err != nil {
		s.respondError(w, r, err)
		return
	}
	views, err := s.plans.Stages(r.Context(), planID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdateStage(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	stageID, err := pathID(r, "stageId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req updateStageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	stage, err := s.plans.UpdateStage(r.Context(), s.actor(r), planID, stageID, service.UpdateStageInput{
		Name:              req.Name,
		Description:       req.Description,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Status:            req.Status,
		MaxDailyCigarette: req.MaxDailyCigarette,
		ClearCeiling:      req.ClearCeiling,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

// handleRecordProgress always answers 201 for a stored record; over-limit
// warnings and cancellations travel as flags in the body.
func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	stageID, err := pathID(r, "stageId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.CigaretteCount == nil {
		s.respondError(w, r, &service.ValidationError{Field: "cigarette_count", Message: "is required"})
		return
	}

	actor := s.actor(r)
	plan, err := s.plans.Authorize(r.Context(), actor, planID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if plan.UserID != actor.UserID {
		writeMessage(w, http.StatusForbidden, "only the plan owner can record progress")
		return
	}

	result, err := s.progress.Record(r.Context(), service.RecordInput{
		UserID:         actor.UserID,
		PlanID:         planID,
		StageID:        stageID,
		CigaretteCount: *req.CigaretteCount,
		Note:           req.Note,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	stageID, err := pathID(r, "stageId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	plan, err := s.plans.Authorize(r.Context(), s.actor(r), planID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	records, err := s.progress.List(r.Context(), plan.UserID, planID, stageID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAssignCoach(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req assignCoachRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.CoachID <= 0 {
		s.respondError(w, r, &service.ValidationError{Field: "coach_id", Message: "is required"})
		return
	}
	plan, err := s.coaches.Assign(r.Context(), s.actor(r), planID, req.CoachID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
