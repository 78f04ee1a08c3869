package attempt

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"langlearn-server/internal/auth"
	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
	"langlearn-server/pkg/apperr"
	"langlearn-server/pkg/httpx"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log.With("handler", "attempt")}
}

type StartRequest struct {
	QuizID uint `json:"quizId"`
}

type AnswerRequest struct {
	QuestionID uint `json:"questionId"`
	OptionID   uint `json:"optionId"`
}

// request resolves the acting user and the {id} path variable.
func (h *Handler) request(w http.ResponseWriter, r *http.Request) (*models.User, uint, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, h.log, apperr.Unauthenticated("authentication required"))
		return nil, 0, false
	}
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		httpx.WriteError(w, r, h.log, apperr.Invalid("invalid attempt id"))
		return nil, 0, false
	}
	return user, uint(id), true
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, h.log, apperr.Unauthenticated("authentication required"))
		return
	}
	var req StartRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if req.QuizID == 0 {
		httpx.WriteError(w, r, h.log, apperr.Invalid("quizId is required"))
		return
	}
	res, err := h.service.Start(r.Context(), user.ID, req.QuizID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, res)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	user, attemptID, ok := h.request(w, r)
	if !ok {
		return
	}
	var req AnswerRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if req.QuestionID == 0 || req.OptionID == 0 {
		httpx.WriteError(w, r, h.log, apperr.Invalid("questionId and optionId are required"))
		return
	}
	correct, err := h.service.Answer(r.Context(), user.ID, attemptID, req.QuestionID, req.OptionID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"isCorrect": correct})
}

func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	user, attemptID, ok := h.request(w, r)
	if !ok {
		return
	}
	score, err := h.service.Finish(r.Context(), user.ID, attemptID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	user, attemptID, ok := h.request(w, r)
	if !ok {
		return
	}
	results, err := h.service.Results(r.Context(), user.ID, attemptID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
