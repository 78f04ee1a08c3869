// internal/models/dto.go
package models

import "time"

type QuestionView struct {
	ID      uint         `json:"id"`
	Text    string       `json:"text"`
	Order   int          `json:"order"`
	Options []OptionView `json:"options"`
}

type OptionView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"` // admin only
}

// View converts a question for display. Correctness is only included when
// reveal is set, which is reserved for the admin back-office.
func (q Question) View(reveal bool) QuestionView {
	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{ID: opt.ID, Text: opt.Text}
		if reveal {
			correct := opt.IsCorrect
			options[i].IsCorrect = &correct
		}
	}
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		Order:   q.Order,
		Options: options,
	}
}

func QuestionViews(questions []Question, reveal bool) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = q.View(reveal)
	}
	return views
}

// QuizSummary is one row of the student quiz listing.
type QuizSummary struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CourseTitle string `json:"course_title"`
	LessonTitle string `json:"lesson_title"`
}

type QuizDetail struct {
	ID               uint   `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	CourseID         *uint  `json:"course_id"`
	LessonID         *uint  `json:"lesson_id"`
	CourseTitle      string `json:"course_title"`
	LessonTitle      string `json:"lesson_title"`
	ResolvedCourseID *uint  `json:"resolved_course_id"`
}

// EnrolledStudent is one row of a course's student list.
type EnrolledStudent struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"is_verified"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type ScoreSummary struct {
	ScorePercent   int `json:"scorePercent"`
	TotalCorrect   int `json:"totalCorrect"`
	TotalWrong     int `json:"totalWrong"`
	TotalQuestions int `json:"totalQuestions"`
}

// QuestionResult is one row of the post-finish review. Nil pointers mean the
// question was left unanswered.
type QuestionResult struct {
	QuestionID        uint    `json:"question_id"`
	QuestionText      string  `json:"question_text"`
	SelectedOptionID  *uint   `json:"selected_option_id"`
	IsCorrect         *bool   `json:"is_correct"`
	CorrectOptionID   *uint   `json:"correct_option_id"`
	CorrectOptionText *string `json:"correct_option_text"`
}
