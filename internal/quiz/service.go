package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
	"langlearn-server/pkg/apperr"
	"langlearn-server/pkg/cache"
)

// QuizCache holds fully loaded quizzes. Implemented by cache.RedisCache.
type QuizCache interface {
	GetQuiz(ctx context.Context, id uint) (*models.Quiz, error)
	SetQuiz(ctx context.Context, quiz *models.Quiz) error
	DeleteQuiz(ctx context.Context, id uint) error
}

const optionsPerQuestion = 3

type Service struct {
	repo  *Repository
	cache QuizCache
	log   *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log.With("service", "QuizService")}
}

func (s *Service) SetCache(c QuizCache) {
	s.cache = c
}

// QuizView is what a student sees of a quiz: no option correctness.
type QuizView struct {
	Quiz      models.QuizDetail     `json:"quiz"`
	Questions []models.QuestionView `json:"questions"`
}

type AdminQuizView struct {
	Quiz      models.Quiz           `json:"quiz"`
	Questions []models.QuestionView `json:"questions"`
}

type QuizInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CourseID    *uint  `json:"courseId"`
	LessonID    *uint  `json:"lessonId"`
}

type EnrollmentInput struct {
	CourseID uint     `json:"courseId"`
	Email    string   `json:"email"`
	Emails   []string `json:"emails"`
}

type QuestionInput struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Order        *int     `json:"order"`
}

func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.QuizSummary, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	if rows == nil {
		rows = []models.QuizSummary{}
	}
	return rows, nil
}

// CheckAccess reports NotFound for a missing quiz and Forbidden when the user
// is not enrolled in the quiz's course.
func (s *Service) CheckAccess(ctx context.Context, userID, quizID uint) (*models.QuizDetail, error) {
	detail, err := s.repo.GetDetail(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if detail == nil {
		return nil, apperr.NotFound("quiz not found")
	}
	if detail.ResolvedCourseID == nil {
		return nil, apperr.Forbidden("quiz is not linked to a course")
	}
	ok, err := s.repo.IsEnrolled(ctx, userID, *detail.ResolvedCourseID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !ok {
		return nil, apperr.Forbidden("not enrolled in this course")
	}
	return detail, nil
}

func (s *Service) GetForUser(ctx context.Context, userID, quizID uint) (*QuizView, error) {
	detail, err := s.CheckAccess(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Questions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return &QuizView{Quiz: *detail, Questions: models.QuestionViews(questions, false)}, nil
}

// Questions returns the quiz's live questions with options, ordered by
// question_order then id.
func (s *Service) Questions(ctx context.Context, quizID uint) ([]models.Question, error) {
	quiz, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, apperr.NotFound("quiz not found")
	}
	return quiz.Questions, nil
}

func (s *Service) load(ctx context.Context, quizID uint) (*models.Quiz, error) {
	if s.cache != nil {
		quiz, err := s.cache.GetQuiz(ctx, quizID)
		if err == nil {
			return quiz, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("quiz cache read failed", "quiz_id", quizID, "error", err)
		}
	}

	quiz, err := s.repo.LoadQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if quiz != nil && s.cache != nil {
		if err := s.cache.SetQuiz(ctx, quiz); err != nil {
			s.log.Warn("quiz cache write failed", "quiz_id", quizID, "error", err)
		}
	}
	return quiz, nil
}

func (s *Service) invalidate(ctx context.Context, quizID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteQuiz(ctx, quizID); err != nil {
		s.log.Warn("quiz cache invalidation failed", "quiz_id", quizID, "error", err)
	}
}

func (s *Service) CreateCourse(ctx context.Context, title, description string) (*models.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Invalid("title is required")
	}
	c := &models.Course{Title: title, Description: strings.TrimSpace(description)}
	if err := s.repo.CreateCourse(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (s *Service) CreateLesson(ctx context.Context, courseID uint, title string) (*models.Lesson, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Invalid("title is required")
	}
	ok, err := s.repo.CourseExists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("course not found")
	}
	l := &models.Lesson{CourseID: courseID, Title: title}
	if err := s.repo.CreateLesson(ctx, l); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return l, nil
}

func (s *Service) validateLinks(ctx context.Context, in QuizInput) error {
	if in.CourseID != nil {
		ok, err := s.repo.CourseExists(ctx, *in.CourseID)
		if err != nil {
			return fmt.Errorf("check course: %w", err)
		}
		if !ok {
			return apperr.Invalid("course does not exist")
		}
	}
	if in.LessonID != nil {
		l, err := s.repo.GetLesson(ctx, *in.LessonID)
		if err != nil {
			return fmt.Errorf("check lesson: %w", err)
		}
		if l == nil {
			return apperr.Invalid("lesson does not exist")
		}
	}
	return nil
}

func (s *Service) CreateQuiz(ctx context.Context, in QuizInput) (*models.Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Invalid("title is required")
	}
	if err := s.validateLinks(ctx, in); err != nil {
		return nil, err
	}
	quiz := &models.Quiz{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CourseID:    in.CourseID,
		LessonID:    in.LessonID,
	}
	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

func (s *Service) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	quizzes, err := s.repo.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// GetQuiz is the admin view and includes option correctness.
func (s *Service) GetQuiz(ctx context.Context, quizID uint) (*AdminQuizView, error) {
	quiz, err := s.repo.LoadQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if quiz == nil {
		return nil, apperr.NotFound("quiz not found")
	}
	questions := models.QuestionViews(quiz.Questions, true)
	quiz.Questions = nil
	return &AdminQuizView{Quiz: *quiz, Questions: questions}, nil
}

func (s *Service) UpdateQuiz(ctx context.Context, quizID uint, in QuizInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apperr.Invalid("title is required")
	}
	if err := s.validateLinks(ctx, in); err != nil {
		return err
	}
	ok, err := s.repo.UpdateQuiz(ctx, quizID, map[string]interface{}{
		"title":       title,
		"description": strings.TrimSpace(in.Description),
		"course_id":   in.CourseID,
		"lesson_id":   in.LessonID,
	})
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if !ok {
		return apperr.NotFound("quiz not found")
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *Service) DeleteQuiz(ctx context.Context, quizID uint) error {
	ok, err := s.repo.DeleteQuiz(ctx, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if !ok {
		return apperr.NotFound("quiz not found")
	}
	s.invalidate(ctx, quizID)
	s.log.Info("quiz deleted", "quiz_id", quizID)
	return nil
}

func (s *Service) AddQuestion(ctx context.Context, quizID uint, in QuestionInput) (*models.Question, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.Invalid("question text is required")
	}
	if len(in.Options) != optionsPerQuestion {
		return nil, apperr.Invalid("a question needs exactly 3 options")
	}
	if in.CorrectIndex < 0 || in.CorrectIndex >= optionsPerQuestion {
		return nil, apperr.Invalid("correctIndex must be 0, 1 or 2")
	}

	q := &models.Question{QuizID: quizID, Text: text}
	appendLast := in.Order == nil
	if !appendLast {
		q.Order = *in.Order
	}
	for i, opt := range in.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return nil, apperr.Invalid("options must not be empty")
		}
		q.Options = append(q.Options, models.Option{Text: opt, IsCorrect: i == in.CorrectIndex})
	}

	quiz, err := s.repo.LoadQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	if quiz == nil {
		return nil, apperr.NotFound("quiz not found")
	}
	if err := s.repo.AddQuestion(ctx, q, appendLast); err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	s.invalidate(ctx, quizID)
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, questionID uint) error {
	q, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if q == nil {
		return apperr.NotFound("question not found")
	}
	if err := s.repo.DeleteQuestion(ctx, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.invalidate(ctx, q.QuizID)
	return nil
}

func (s *Service) requireCourse(ctx context.Context, courseID uint) error {
	ok, err := s.repo.CourseExists(ctx, courseID)
	if err != nil {
		return fmt.Errorf("check course: %w", err)
	}
	if !ok {
		return apperr.NotFound("course not found")
	}
	return nil
}

// Enroll gives the registered users among the emails access to the course and
// returns how many were matched. Repeat enrollments are no-ops.
func (s *Service) Enroll(ctx context.Context, in EnrollmentInput) (int, error) {
	list := in.Emails
	if len(list) == 0 {
		list = []string{in.Email}
	}
	emails := make([]string, 0, len(list))
	for _, e := range list {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails = append(emails, e)
		}
	}
	if in.CourseID == 0 || len(emails) == 0 {
		return 0, apperr.Invalid("courseId and at least one email are required")
	}
	if err := s.requireCourse(ctx, in.CourseID); err != nil {
		return 0, err
	}

	userIDs, err := s.repo.UserIDsByEmail(ctx, emails)
	if err != nil {
		return 0, fmt.Errorf("find users: %w", err)
	}
	if len(userIDs) == 0 {
		return 0, apperr.NotFound("users not found")
	}
	if err := s.repo.Enroll(ctx, in.CourseID, userIDs); err != nil {
		return 0, fmt.Errorf("enroll: %w", err)
	}
	s.log.Info("users enrolled", "course_id", in.CourseID, "count", len(userIDs))
	return len(userIDs), nil
}

func (s *Service) CourseStudents(ctx context.Context, courseID uint) ([]models.EnrolledStudent, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	students, err := s.repo.CourseStudents(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if students == nil {
		students = []models.EnrolledStudent{}
	}
	return students, nil
}
