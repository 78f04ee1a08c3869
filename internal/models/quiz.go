// internal/models/quiz.go
package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	CourseID    *uint          `json:"course_id" gorm:"index"`
	LessonID    *uint          `json:"lesson_id" gorm:"index"`
	Questions   []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

func (Quiz) TableName() string { return "quiz" }

type Question struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	QuizID    uint           `json:"quiz_id" gorm:"not null;index"`
	Text      string         `json:"text" gorm:"not null"`
	Order     int            `json:"order" gorm:"column:question_order;not null;default:0"`
	Options   []Option       `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string { return "quiz_question" }

// Option.IsCorrect is serialized so cached quizzes keep it; student-facing
// responses go through QuestionView, which drops it.
type Option struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	QuestionID uint           `json:"question_id" gorm:"not null;index"`
	Text       string         `json:"text" gorm:"not null"`
	IsCorrect  bool           `json:"is_correct" gorm:"not null;default:false"`
}

func (Option) TableName() string { return "quiz_option" }

type QuizAttempt struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       uint       `json:"user_id" gorm:"not null;index:idx_attempt_user_quiz"`
	QuizID       uint       `json:"quiz_id" gorm:"not null;index:idx_attempt_user_quiz"`
	StartedAt    time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt   *time.Time `json:"finished_at"`
	ScorePercent *int       `json:"score_percent"`
	TotalCorrect *int       `json:"total_correct"`
	TotalWrong   *int       `json:"total_wrong"`
}

func (QuizAttempt) TableName() string { return "quiz_attempt" }

func (a *QuizAttempt) Finished() bool { return a.FinishedAt != nil }

// Answer is unique per (attempt, question); resubmission overwrites it.
type Answer struct {
	ID               uint      `json:"-" gorm:"primaryKey"`
	QuizAttemptID    uint      `json:"quiz_attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID       uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	SelectedOptionID uint      `json:"selected_option_id" gorm:"not null"`
	IsCorrect        bool      `json:"is_correct" gorm:"not null"`
	AnsweredAt       time.Time `json:"answered_at" gorm:"not null"`
}

func (Answer) TableName() string { return "quiz_answer" }
