package attempt

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
)

type Repository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepository(db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, log: log.With("repository", "attempt")}
}

// LatestOpen returns the most recent unfinished attempt of the user on the quiz.
func (r *Repository) LatestOpen(ctx context.Context, userID, quizID uint) (*models.QuizAttempt, error) {
	var a models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND finished_at IS NULL", userID, quizID).
		Order("started_at DESC, id DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) Create(ctx context.Context, a *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// GetOwned returns nil when the attempt does not exist or belongs to someone else.
func (r *Repository) GetOwned(ctx context.Context, attemptID, userID uint) (*models.QuizAttempt, error) {
	var a models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", attemptID, userID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) Answers(ctx context.Context, attemptID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Where("quiz_attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error
	return answers, err
}

// QuestionInQuiz reports whether a live question belongs to the quiz.
func (r *Repository) QuestionInQuiz(ctx context.Context, questionID, quizID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ? AND quiz_id = ?", questionID, quizID).
		Count(&count).Error
	return count > 0, err
}

// OptionOf returns the option only if it belongs to the question.
func (r *Repository) OptionOf(ctx context.Context, optionID, questionID uint) (*models.Option, error) {
	var o models.Option
	err := r.db.WithContext(ctx).
		Where("id = ? AND question_id = ?", optionID, questionID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpsertAnswer writes the answer keyed by (attempt, question), replacing any
// earlier selection.
func (r *Repository) UpsertAnswer(ctx context.Context, a *models.Answer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quiz_attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_option_id", "is_correct", "answered_at"}),
	}).Create(a).Error
}

// Questions loads the quiz's live questions with options in display order,
// whether or not the quiz itself is still published.
func (r *Repository) Questions(ctx context.Context, quizID uint) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("quiz_id = ?", quizID).
		Order("question_order ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *Repository) CountLiveQuestions(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}

// CountAnswers tallies the attempt's answers to questions that are still live.
func (r *Repository) CountAnswers(ctx context.Context, attemptID uint) (correct, wrong int64, err error) {
	var rows []struct {
		IsCorrect bool
		Total     int64
	}
	live := r.db.Model(&models.Question{}).Select("id")
	err = r.db.WithContext(ctx).Model(&models.Answer{}).
		Select("is_correct, COUNT(*) AS total").
		Where("quiz_attempt_id = ? AND question_id IN (?)", attemptID, live).
		Group("is_correct").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		if row.IsCorrect {
			correct = row.Total
		} else {
			wrong = row.Total
		}
	}
	return correct, wrong, nil
}

// FinishIfOpen stores the score only while the attempt is unfinished. It
// reports false when another request finished it first.
func (r *Repository) FinishIfOpen(ctx context.Context, attemptID uint, at time.Time, score models.ScoreSummary) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("id = ? AND finished_at IS NULL", attemptID).
		Updates(map[string]interface{}{
			"finished_at":   at,
			"score_percent": score.ScorePercent,
			"total_correct": score.TotalCorrect,
			"total_wrong":   score.TotalWrong,
		})
	return res.RowsAffected > 0, res.Error
}
