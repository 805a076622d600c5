package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/http/response"
	"github.com/novasector/server-bans/internal/service"

	"github.com/google/uuid"
)

type BanHandler struct {
	service *service.BanService
}

func NewBanHandler(svc *service.BanService) *BanHandler {
	return &BanHandler{service: svc}
}

type issueBanRequest struct {
	Target          string `json:"target"`
	Reason          string `json:"reason"`
	DurationMinutes string `json:"duration_minutes,omitempty"`
	Severity        string `json:"severity,omitempty"`
	RequestedBy     string `json:"requested_by,omitempty"`
}

type issueBanResponse struct {
	Ban       *domain.BanRecord `json:"ban"`
	Permanent bool              `json:"permanent"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// IssueBan handles POST /admin/bans.
func (h *BanHandler) IssueBan(w http.ResponseWriter, r *http.Request) {
	var body issueBanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}

	req := service.IssueRequest{
		Target:        body.Target,
		Reason:        body.Reason,
		DurationToken: body.DurationMinutes,
		SeverityToken: body.Severity,
	}
	if body.RequestedBy != "" {
		id, err := uuid.Parse(body.RequestedBy)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "requested_by must be a UUID", nil)
			return
		}
		req.RequestedBy = &id
	}

	ban, err := h.service.IssueBan(r.Context(), req)
	if err != nil {
		writeIssueError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, issueBanResponse{
		Ban:       ban,
		Permanent: ban.ExpiresAt == nil,
		ExpiresAt: ban.ExpiresAt,
	})
}

func writeIssueError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *service.InvalidArgumentError
	if errors.As(err, &invalid) {
		response.Error(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", invalid.Error(),
			map[string]any{"argument": invalid.Argument, "token": invalid.Token})
		return
	}
	if errors.Is(err, service.ErrTargetNotFound) {
		response.Error(w, r, http.StatusNotFound, "TARGET_NOT_FOUND", "no player matches that name or id", nil)
		return
	}
	var persistence *service.PersistenceError
	if errors.As(err, &persistence) {
		// The caller must know the ban does not exist in the store.
		response.Error(w, r, http.StatusBadGateway, "PERSISTENCE_ERROR", "the ban was NOT recorded", nil)
		return
	}
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "ban issuance failed", nil)
}
