package api

import (
	"net/http"
	"strconv"

	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/service"
)

type meResponse struct {
	User       *models.User       `json:"user"`
	Membership *models.Membership `json:"membership"`
}

type linkTelegramRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type badgeRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Condition   models.BadgeCondition `json:"condition"`
	ProOnly     bool                  `json:"pro_only"`
}

type coachRequest struct {
	Bio      string `json:"bio"`
	MaxUsers int    `json:"max_users"`
}

type membershipRequest struct {
	UserID        int64  `json:"user_id"`
	Tier          string `json:"tier"`
	IsPro         bool   `json:"is_pro"`
	CanCreatePlan bool   `json:"can_create_plan"`
	Days          int    `json:"days"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := s.actor(r)
	user, err := s.users.Get(r.Context(), actor.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	membership, err := s.memberships.Active(r.Context(), actor.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Membership: membership})
}

func (s *Server) handleLinkTelegram(w http.ResponseWriter, r *http.Request) {
	var req linkTelegramRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.users.LinkTelegram(r.Context(), s.actor(r).UserID, req.TelegramID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMyBadges(w http.ResponseWriter, r *http.Request) {
	owned, err := s.badges.ListForUser(r.Context(), s.actor(r).UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, owned)
}

func (s *Server) handleListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := s.badges.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (s *Server) handleCreateBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	badge, err := s.badges.Create(r.Context(), service.CreateBadgeInput{
		Name:        req.Name,
		Description: req.Description,
		Condition:   req.Condition,
		ProOnly:     req.ProOnly,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, badge)
}

func (s *Server) handleListCoaches(w http.ResponseWriter, r *http.Request) {
	coaches, err := s.coaches.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coaches)
}

func (s *Server) handleRegisterCoach(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req coachRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	coach, err := s.coaches.Register(r.Context(), userID, req.Bio, req.MaxUsers)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coach)
}

func (s *Server) handleGrantMembership(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	membership, err := s.memberships.Grant(r.Context(), service.GrantMembershipInput{
		UserID:        req.UserID,
		Tier:          req.Tier,
		IsPro:         req.IsPro,
		CanCreatePlan: req.CanCreatePlan,
		Days:          req.Days,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, membership)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notes, err := s.notifications.List(r.Context(), s.actor(r).UserID, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.notifications.MarkRead(r.Context(), s.actor(r).UserID, id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
