// Package testutil provides an in-memory record store and seed helpers for
// package tests.
package testutil

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
	"langlearn-server/pkg/database"
)

// DB returns a freshly migrated in-memory database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// every pooled connection to ":memory:" would see its own database
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

func SeedUser(tb testing.TB, db *gorm.DB, email string, verified bool) *models.User {
	tb.Helper()
	u := &models.User{
		Email:        email,
		Name:         "Student",
		PasswordHash: "x",
		IsVerified:   verified,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, db *gorm.DB, title string) *models.Course {
	tb.Helper()
	c := &models.Course{Title: title}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedLesson(tb testing.TB, db *gorm.DB, courseID uint, title string) *models.Lesson {
	tb.Helper()
	l := &models.Lesson{CourseID: courseID, Title: title}
	if err := db.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func Enroll(tb testing.TB, db *gorm.DB, userID, courseID uint) {
	tb.Helper()
	if err := db.Create(&models.Enrollment{UserID: userID, CourseID: courseID}).Error; err != nil {
		tb.Fatalf("enroll: %v", err)
	}
}

// SeedQuiz creates a course-scoped quiz with n questions of three options
// each. The option at index 1 of every question is the correct one.
func SeedQuiz(tb testing.TB, db *gorm.DB, courseID uint, n int) *models.Quiz {
	tb.Helper()
	quiz := &models.Quiz{Title: "Quiz", CourseID: &courseID}
	for i := 0; i < n; i++ {
		quiz.Questions = append(quiz.Questions, models.Question{
			Text:  fmt.Sprintf("Question %d", i+1),
			Order: i + 1,
			Options: []models.Option{
				{Text: "a"},
				{Text: "b", IsCorrect: true},
				{Text: "c"},
			},
		})
	}
	if err := db.Create(quiz).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

func CorrectOption(q models.Question) models.Option { return q.Options[1] }

func WrongOption(q models.Question) models.Option { return q.Options[0] }
