package quiz

import (
	"context"
	"errors"

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
	return &Repository{db: db, log: log.With("repository", "quiz")}
}

// resolvedCourse is the course a quiz is visible through: its own, or its lesson's.
const resolvedCourse = "COALESCE(q.course_id, l.course_id)"

func (r *Repository) ListForUser(ctx context.Context, userID uint) ([]models.QuizSummary, error) {
	var rows []models.QuizSummary
	err := r.db.WithContext(ctx).
		Table("quiz AS q").
		Select("q.id, q.title, q.description, COALESCE(c.title, '') AS course_title, COALESCE(l.title, '') AS lesson_title").
		Joins("LEFT JOIN lessons l ON l.id = q.lesson_id").
		Joins("JOIN enrollments e ON e.course_id = "+resolvedCourse+" AND e.user_id = ?", userID).
		Joins("LEFT JOIN courses c ON c.id = "+resolvedCourse).
		Where("q.deleted_at IS NULL").
		Order("q.created_at DESC, q.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetDetail returns nil when the quiz does not exist or was deleted.
func (r *Repository) GetDetail(ctx context.Context, quizID uint) (*models.QuizDetail, error) {
	var rows []models.QuizDetail
	err := r.db.WithContext(ctx).
		Table("quiz AS q").
		Select("q.id, q.title, q.description, q.course_id, q.lesson_id, "+
			"COALESCE(c.title, '') AS course_title, COALESCE(l.title, '') AS lesson_title, "+
			resolvedCourse+" AS resolved_course_id").
		Joins("LEFT JOIN lessons l ON l.id = q.lesson_id").
		Joins("LEFT JOIN courses c ON c.id = "+resolvedCourse).
		Where("q.id = ? AND q.deleted_at IS NULL", quizID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *Repository) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// LoadQuiz returns the quiz with its live questions and their options, in
// display order. Nil when missing.
func (r *Repository) LoadQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC, id ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&quiz, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *Repository) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&quizzes).Error
	return quizzes, err
}

func (r *Repository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if err := r.db.WithContext(ctx).Create(quiz).Error; err != nil {
		return err
	}
	r.log.Info("quiz created", "quiz_id", quiz.ID)
	return nil
}

func (r *Repository) UpdateQuiz(ctx context.Context, quizID uint, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", quizID).Updates(fields)
	return res.RowsAffected > 0, res.Error
}

// DeleteQuiz soft-deletes the quiz; its questions stay attached for results.
func (r *Repository) DeleteQuiz(ctx context.Context, quizID uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Quiz{}, quizID)
	return res.RowsAffected > 0, res.Error
}

// AddQuestion inserts q with its options. With appendLast set, q.Order is
// replaced by the current last question's order + 1.
func (r *Repository) AddQuestion(ctx context.Context, q *models.Question, appendLast bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if appendLast {
			var maxOrder int
			if err := tx.Model(&models.Question{}).
				Where("quiz_id = ?", q.QuizID).
				Select("COALESCE(MAX(question_order), 0)").
				Scan(&maxOrder).Error; err != nil {
				return err
			}
			q.Order = maxOrder + 1
		}
		return tx.Create(q).Error
	})
}

func (r *Repository) GetQuestion(ctx context.Context, questionID uint) (*models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).First(&q, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *Repository) DeleteQuestion(ctx context.Context, questionID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Question{}, questionID).Error
	})
}

func (r *Repository) CreateCourse(ctx context.Context, c *models.Course) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *Repository) CourseExists(ctx context.Context, courseID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", courseID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) GetLesson(ctx context.Context, lessonID uint) (*models.Lesson, error) {
	var l models.Lesson
	err := r.db.WithContext(ctx).First(&l, lessonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// UserIDsByEmail returns the ids of the users with the given emails.
func (r *Repository) UserIDsByEmail(ctx context.Context, emails []string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email IN ?", emails).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// Enroll adds the users to the course. Existing enrollments are left as they are.
func (r *Repository) Enroll(ctx context.Context, courseID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.Enrollment, len(userIDs))
	for i, id := range userIDs {
		rows[i] = models.Enrollment{UserID: id, CourseID: courseID}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

// CourseStudents lists the users enrolled in the course, most recent enrollment first.
func (r *Repository) CourseStudents(ctx context.Context, courseID uint) ([]models.EnrolledStudent, error) {
	var rows []models.EnrolledStudent
	err := r.db.WithContext(ctx).
		Table("enrollments AS e").
		Select("u.id, u.email, u.name, u.is_verified, e.created_at AS enrolled_at").
		Joins("JOIN users u ON u.id = e.user_id").
		Where("e.course_id = ?", courseID).
		Order("e.created_at DESC, e.id DESC").
		Scan(&rows).Error
	return rows, err
}
