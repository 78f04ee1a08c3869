package attempt

import (
	"context"
	"fmt"
	"math"
	"time"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
	"langlearn-server/pkg/apperr"
)

// Catalog is the part of the quiz catalog an attempt depends on.
type Catalog interface {
	CheckAccess(ctx context.Context, userID, quizID uint) (*models.QuizDetail, error)
	Questions(ctx context.Context, quizID uint) ([]models.Question, error)
}

// Notifier pushes live events to a user's open connections.
type Notifier interface {
	Notify(userID uint, messageType string, data interface{})
}

const (
	EventStarted  = "attempt_started"
	EventAnswered = "answer_recorded"
	EventFinished = "attempt_finished"
)

type Service struct {
	repo     *Repository
	catalog  Catalog
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewService(repo *Repository, catalog Catalog, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		log:     log.With("service", "AttemptService"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(userID uint, event string, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, event, data)
}

type StartResult struct {
	Attempt   models.QuizAttempt    `json:"attempt"`
	Answers   []models.Answer       `json:"answers"`
	Questions []models.QuestionView `json:"questions"`
	Resumed   bool                  `json:"resumed"`
}

// Start resumes the user's open attempt on the quiz or creates a new one.
func (s *Service) Start(ctx context.Context, userID, quizID uint) (*StartResult, error) {
	if _, err := s.catalog.CheckAccess(ctx, userID, quizID); err != nil {
		return nil, err
	}

	attempt, err := s.repo.LatestOpen(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("find open attempt: %w", err)
	}
	resumed := attempt != nil
	if !resumed {
		attempt = &models.QuizAttempt{UserID: userID, QuizID: quizID, StartedAt: s.now()}
		if err := s.repo.Create(ctx, attempt); err != nil {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
		s.log.Info("attempt started", "user_id", userID, "quiz_id", quizID, "attempt_id", attempt.ID)
	}

	var answers []models.Answer
	if resumed {
		if answers, err = s.repo.Answers(ctx, attempt.ID); err != nil {
			return nil, fmt.Errorf("load answers: %w", err)
		}
	}
	if answers == nil {
		answers = []models.Answer{}
	}

	questions, err := s.catalog.Questions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if !resumed {
		s.notify(userID, EventStarted, map[string]interface{}{
			"attemptId": attempt.ID,
			"quizId":    quizID,
		})
	}
	return &StartResult{
		Attempt:   *attempt,
		Answers:   answers,
		Questions: DisplayOrder(attempt.ID, questions),
		Resumed:   resumed,
	}, nil
}

// DisplayOrder shuffles questions by attempt and each question's options by
// attempt + question, hiding correctness.
func DisplayOrder(attemptID uint, questions []models.Question) []models.QuestionView {
	shuffled := Shuffle(questions, uint64(attemptID))
	views := make([]models.QuestionView, len(shuffled))
	for i, q := range shuffled {
		q.Options = Shuffle(q.Options, uint64(attemptID)+uint64(q.ID))
		views[i] = q.View(false)
	}
	return views
}

func (s *Service) openAttempt(ctx context.Context, userID, attemptID uint) (*models.QuizAttempt, error) {
	attempt, err := s.repo.GetOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt == nil {
		return nil, apperr.ErrAttemptNotFound
	}
	if attempt.Finished() {
		return nil, apperr.ErrAttemptFinished
	}
	return attempt, nil
}

// Answer records the selection for one question and returns its correctness.
func (s *Service) Answer(ctx context.Context, userID, attemptID, questionID, optionID uint) (bool, error) {
	attempt, err := s.openAttempt(ctx, userID, attemptID)
	if err != nil {
		return false, err
	}

	ok, err := s.repo.QuestionInQuiz(ctx, questionID, attempt.QuizID)
	if err != nil {
		return false, fmt.Errorf("check question: %w", err)
	}
	if !ok {
		return false, apperr.NotFound("question not found")
	}
	option, err := s.repo.OptionOf(ctx, optionID, questionID)
	if err != nil {
		return false, fmt.Errorf("check option: %w", err)
	}
	if option == nil {
		return false, apperr.NotFound("option not found")
	}

	if err := s.repo.UpsertAnswer(ctx, &models.Answer{
		QuizAttemptID:    attempt.ID,
		QuestionID:       questionID,
		SelectedOptionID: option.ID,
		IsCorrect:        option.IsCorrect,
		AnsweredAt:       s.now(),
	}); err != nil {
		return false, fmt.Errorf("save answer: %w", err)
	}

	s.notify(userID, EventAnswered, map[string]interface{}{
		"attemptId":  attempt.ID,
		"questionId": questionID,
		"isCorrect":  option.IsCorrect,
	})
	return option.IsCorrect, nil
}

func scorePercent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Finish scores the attempt and closes it. Unanswered questions count toward
// the total but not as wrong.
func (s *Service) Finish(ctx context.Context, userID, attemptID uint) (*models.ScoreSummary, error) {
	attempt, err := s.openAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountLiveQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	correct, wrong, err := s.repo.CountAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	score := models.ScoreSummary{
		ScorePercent:   scorePercent(int(correct), int(total)),
		TotalCorrect:   int(correct),
		TotalWrong:     int(wrong),
		TotalQuestions: int(total),
	}
	finished, err := s.repo.FinishIfOpen(ctx, attempt.ID, s.now(), score)
	if err != nil {
		return nil, fmt.Errorf("finish attempt: %w", err)
	}
	if !finished {
		return nil, apperr.ErrAttemptFinished
	}

	s.log.Info("attempt finished", "user_id", userID, "attempt_id", attempt.ID, "score", score.ScorePercent)
	s.notify(userID, EventFinished, map[string]interface{}{
		"attemptId": attempt.ID,
		"score":     score,
	})
	return &score, nil
}

// Results lists every question of a finished attempt with the user's choice
// and the correct option.
func (s *Service) Results(ctx context.Context, userID, attemptID uint) ([]models.QuestionResult, error) {
	attempt, err := s.repo.GetOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt == nil {
		return nil, apperr.ErrAttemptNotFound
	}
	if !attempt.Finished() {
		return nil, apperr.ErrAttemptNotFinished
	}

	questions, err := s.repo.Questions(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	answers, err := s.repo.Answers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	byQuestion := make(map[uint]models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	results := make([]models.QuestionResult, 0, len(questions))
	for _, q := range questions {
		res := models.QuestionResult{QuestionID: q.ID, QuestionText: q.Text}
		if a, ok := byQuestion[q.ID]; ok {
			selected, correct := a.SelectedOptionID, a.IsCorrect
			res.SelectedOptionID = &selected
			res.IsCorrect = &correct
		}
		for _, o := range q.Options {
			if o.IsCorrect {
				id, text := o.ID, o.Text
				res.CorrectOptionID = &id
				res.CorrectOptionText = &text
				break
			}
		}
		results = append(results, res)
	}
	return results, nil
}
