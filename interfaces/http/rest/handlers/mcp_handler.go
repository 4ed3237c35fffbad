package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mentraflow-backend/application/services"
	"mentraflow-backend/pkg/common"
	apperrors "mentraflow-backend/pkg/errors"
)

// Settings is the integration configuration shown to platform clients.
type Settings struct {
	EnabledPlatforms []string `json:"enabled_platforms"`
	MaxConversations int      `json:"max_conversations"`
	AutoQuiz         bool     `json:"auto_quiz"`
	AutoNode         bool     `json:"auto_node"`
}

// QuizResultRequest is one scored quiz attempt.
type QuizResultRequest struct {
	Score *float64 `json:"score"`
}

// MCPHandler serves the export ingestion and knowledge read endpoints.
type MCPHandler struct {
	gateway  *services.IngestionGateway
	queries  *services.QueryService
	settings Settings
	logger   *zap.Logger
}

func NewMCPHandler(gateway *services.IngestionGateway, queries *services.QueryService, settings Settings, logger *zap.Logger) *MCPHandler {
	return &MCPHandler{
		gateway:  gateway,
		queries:  queries,
		settings: settings,
		logger:   logger,
	}
}

// ReceiveExport handles POST /receive-export
func (h *MCPHandler) ReceiveExport(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitExportRequest
	if !decodeBody(w, r, &req, maxExportBytes) {
		return
	}

	result, err := h.gateway.Submit(r.Context(), req)
	if err != nil {
		if !apperrors.IsValidation(err) {
			h.logger.Error("Failed to accept export",
				zap.String("user_id", req.UserID),
				zap.Error(err))
		}
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusAccepted, result)
}

// ImportStatus handles GET /status/{importID}
func (h *MCPHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")
	status, err := h.queries.ImportStatus(r.Context(), importID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, status)
}

// History handles GET /history
func (h *MCPHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	imports, err := h.queries.ImportHistory(r.Context(), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		h.respondListError(w, "history", err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"imports": imports,
		"count":   len(imports),
	})
}

// Concepts handles GET /concepts
func (h *MCPHandler) Concepts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	concepts, err := h.queries.Concepts(r.Context(), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		h.respondListError(w, "concepts", err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"concepts": concepts,
		"count":    len(concepts),
	})
}

// ConceptQuiz handles GET /concepts/{conceptID}/quiz
func (h *MCPHandler) ConceptQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.queries.QuizForConcept(r.Context(), chi.URLParam(r, "conceptID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, quiz)
}

// Quizzes handles GET /quizzes
func (h *MCPHandler) Quizzes(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	quizzes, err := h.queries.Quizzes(r.Context(), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		h.respondListError(w, "quizzes", err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"quizzes": quizzes,
		"count":   len(quizzes),
	})
}

// RecordQuizResult handles POST /quizzes/{quizID}/results
func (h *MCPHandler) RecordQuizResult(w http.ResponseWriter, r *http.Request) {
	var req QuizResultRequest
	if !decodeBody(w, r, &req, maxSmallBodyBytes) {
		return
	}
	if req.Score == nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, "score is required")
		return
	}

	quiz, err := h.queries.RecordQuizResult(r.Context(), chi.URLParam(r, "quizID"), *req.Score)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, quiz)
}

// Settings handles GET /settings
func (h *MCPHandler) Settings(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.settings)
}

// Stats handles GET /stats
func (h *MCPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queries.Stats(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.respondListError(w, "stats", err)
		return
	}
	common.RespondJSON(w, http.StatusOK, stats)
}

func (h *MCPHandler) respondListError(w http.ResponseWriter, what string, err error) {
	if !apperrors.IsValidation(err) {
		h.logger.Error("Read failed", zap.String("endpoint", what), zap.Error(err))
	}
	common.RespondAppError(w, err)
}
