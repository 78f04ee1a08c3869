package quiz

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"langlearn-server/internal/auth"
	"langlearn-server/internal/logger"
	"langlearn-server/pkg/apperr"
	"langlearn-server/pkg/httpx"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log.With("handler", "quiz")}
}

// PathID parses a positive numeric path variable.
func PathID(r *http.Request, name string) (uint, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Invalid("invalid " + name)
	}
	return uint(v), nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.log, err)
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthenticated("authentication required"))
		return
	}
	quizzes, err := h.service.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"quizzes": quizzes})
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthenticated("authentication required"))
		return
	}
	id, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.GetForUser(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

type courseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handler) AdminListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"courses": courses})
}

func (h *Handler) AdminCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	course, err := h.service.CreateCourse(r.Context(), req.Title, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, course)
}

func (h *Handler) AdminCreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req courseRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	lesson, err := h.service.CreateLesson(r.Context(), courseID, req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, lesson)
}

func (h *Handler) AdminListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"quizzes": quizzes})
}

func (h *Handler) AdminCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizInput
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) AdminGetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.GetQuiz(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) AdminUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req QuizInput
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.UpdateQuiz(r.Context(), id, req); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) AdminDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) AdminAddQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req QuestionInput
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.service.AddQuestion(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, q.View(true))
}

func (h *Handler) AdminDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteQuestion(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) AdminEnroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollmentInput
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.service.Enroll(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "enrolled": n})
}

func (h *Handler) AdminCourseStudents(w http.ResponseWriter, r *http.Request) {
	courseID, err := PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	students, err := h.service.CourseStudents(r.Context(), courseID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"students": students})
}
