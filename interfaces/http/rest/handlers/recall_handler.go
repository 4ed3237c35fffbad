package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mentraflow-backend/application/services"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/pkg/common"
)

// CompleteSessionRequest reports whether the user recalled the concept.
type CompleteSessionRequest struct {
	Success *bool `json:"success"`
}

// CompleteSessionResponse is returned after a session is completed.
type CompleteSessionResponse struct {
	Success           bool                    `json:"success"`
	Message           string                  `json:"message"`
	FollowUpScheduled bool                    `json:"follow_up_scheduled"`
	NextSession       *entities.RecallSession `json:"next_session,omitempty"`
}

// RecallHandler serves the recall session endpoints.
type RecallHandler struct {
	scheduler *services.RecallScheduler
	logger    *zap.Logger
}

func NewRecallHandler(scheduler *services.RecallScheduler, logger *zap.Logger) *RecallHandler {
	return &RecallHandler{scheduler: scheduler, logger: logger}
}

// ListSessions handles GET /recall-sessions
func (h *RecallHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	list, err := h.scheduler.List(r.Context(), query.Get("user_id"), entities.SessionStatus(query.Get("status")), services.NormalizeLimit(limit))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, list)
}

// CompleteSession handles POST /recall-sessions/{sessionID}/complete
func (h *RecallHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req CompleteSessionRequest
	if !decodeBody(w, r, &req, maxSmallBodyBytes) {
		return
	}
	if req.Success == nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, "success is required")
		return
	}

	result, err := h.scheduler.Complete(r.Context(), sessionID, *req.Success)
	if err != nil {
		h.logger.Debug("Failed to complete recall session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		common.RespondAppError(w, err)
		return
	}

	resp := CompleteSessionResponse{
		Success:     true,
		Message:     "Recall session completed. No follow-up scheduled.",
		NextSession: result.FollowUp,
	}
	if result.FollowUp != nil {
		resp.FollowUpScheduled = true
		resp.Message = "Recall session completed. Next review scheduled."
	}
	common.RespondJSON(w, http.StatusOK, resp)
}
