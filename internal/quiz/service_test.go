package quiz

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"langlearn-server/internal/models"
	"langlearn-server/internal/testutil"
	"langlearn-server/pkg/apperr"
	"langlearn-server/pkg/cache"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewService(NewRepository(db, log), log), db
}

func TestListForUserFollowsEnrollment(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, "ana@example.com", true)
	a1 := testutil.SeedCourse(t, db, "A1")
	b1 := testutil.SeedCourse(t, db, "B1")
	lesson := testutil.SeedLesson(t, db, a1.ID, "Greetings")
	testutil.Enroll(t, db, user.ID, a1.ID)

	direct := testutil.SeedQuiz(t, db, a1.ID, 1)
	viaLesson := &models.Quiz{Title: "Lesson quiz", LessonID: &lesson.ID}
	require.NoError(t, db.Create(viaLesson).Error)
	testutil.SeedQuiz(t, db, b1.ID, 1)
	require.NoError(t, db.Create(&models.Quiz{Title: "Orphan"}).Error)

	rows, err := svc.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, viaLesson.ID, rows[0].ID)
	assert.Equal(t, "A1", rows[0].CourseTitle)
	assert.Equal(t, "Greetings", rows[0].LessonTitle)
	assert.Equal(t, direct.ID, rows[1].ID)

	none, err := svc.ListForUser(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetForUserAccess(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, "ana@example.com", true)
	course := testutil.SeedCourse(t, db, "A1")
	quiz := testutil.SeedQuiz(t, db, course.ID, 2)
	orphan := &models.Quiz{Title: "Orphan"}
	require.NoError(t, db.Create(orphan).Error)

	_, err := svc.GetForUser(ctx, user.ID, quiz.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = svc.GetForUser(ctx, user.ID, 12345)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = svc.GetForUser(ctx, user.ID, orphan.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	testutil.Enroll(t, db, user.ID, course.ID)
	view, err := svc.GetForUser(ctx, user.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", view.Quiz.CourseTitle)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, "Question 1", view.Questions[0].Text)
	for _, q := range view.Questions {
		require.Len(t, q.Options, 3)
		for _, o := range q.Options {
			assert.Nil(t, o.IsCorrect)
		}
	}
}

func TestQuestionsOrdering(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	course := testutil.SeedCourse(t, db, "A1")
	quiz := testutil.SeedQuiz(t, db, course.ID, 0)

	for _, in := range []struct {
		text  string
		order int
	}{{"third", 2}, {"first", 1}, {"second", 1}} {
		order := in.order
		_, err := svc.AddQuestion(ctx, quiz.ID, QuestionInput{
			Text: in.text, Options: []string{"a", "b", "c"}, CorrectIndex: 0, Order: &order,
		})
		require.NoError(t, err)
	}

	qs, err := svc.Questions(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{qs[0].Text, qs[1].Text, qs[2].Text})
}

func TestAddQuestionValidation(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	course := testutil.SeedCourse(t, db, "A1")
	quiz := testutil.SeedQuiz(t, db, course.ID, 2)

	cases := []QuestionInput{
		{Text: "", Options: []string{"a", "b", "c"}},
		{Text: "q", Options: []string{"a", "b"}},
		{Text: "q", Options: []string{"a", "b", "c", "d"}},
		{Text: "q", Options: []string{"a", " ", "c"}},
		{Text: "q", Options: []string{"a", "b", "c"}, CorrectIndex: 3},
		{Text: "q", Options: []string{"a", "b", "c"}, CorrectIndex: -1},
	}
	for _, in := range cases {
		_, err := svc.AddQuestion(ctx, quiz.ID, in)
		assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err), "%+v", in)
	}

	_, err := svc.AddQuestion(ctx, 999, QuestionInput{Text: "q", Options: []string{"a", "b", "c"}})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	q, err := svc.AddQuestion(ctx, quiz.ID, QuestionInput{Text: "q", Options: []string{"a", "b", "c"}, CorrectIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, q.Order, "defaults to max order + 1")
	require.Len(t, q.Options, 3)
	assert.True(t, q.Options[2].IsCorrect)
	assert.False(t, q.Options[0].IsCorrect)
}

func TestCreateQuizLinks(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	course := testutil.SeedCourse(t, db, "A1")

	_, err := svc.CreateQuiz(ctx, QuizInput{Title: "  "})
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))

	missing := uint(42)
	_, err = svc.CreateQuiz(ctx, QuizInput{Title: "x", CourseID: &missing})
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))
	_, err = svc.CreateQuiz(ctx, QuizInput{Title: "x", LessonID: &missing})
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))

	quiz, err := svc.CreateQuiz(ctx, QuizInput{Title: "Verbs", CourseID: &course.ID})
	require.NoError(t, err)
	assert.NotZero(t, quiz.ID)

	require.NoError(t, svc.UpdateQuiz(ctx, quiz.ID, QuizInput{Title: "Irregular verbs", CourseID: &course.ID}))
	view, err := svc.GetQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Irregular verbs", view.Quiz.Title)

	require.NoError(t, svc.DeleteQuiz(ctx, quiz.ID))
	_, err = svc.GetQuiz(ctx, quiz.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(svc.DeleteQuiz(ctx, quiz.ID)))
}

func TestCoursesAndLessons(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	course, err := svc.CreateCourse(ctx, "A2", "Elementary")
	require.NoError(t, err)
	_, err = svc.CreateLesson(ctx, course.ID, "Past tense")
	require.NoError(t, err)
	_, err = svc.CreateLesson(ctx, 999, "Nowhere")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	courses, err := svc.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Len(t, courses[0].Lessons, 1)
	assert.Equal(t, "Past tense", courses[0].Lessons[0].Title)
}

func TestQuizCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCache(mr.Addr())
	t.Cleanup(func() { _ = rc.Close() })
	svc.SetCache(rc)

	course := testutil.SeedCourse(t, db, "A1")
	quiz := testutil.SeedQuiz(t, db, course.ID, 2)
	key := fmt.Sprintf("quiz:%d", quiz.ID)

	qs, err := svc.Questions(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.True(t, mr.Exists(key))

	// cached copy is served even if the store changes behind the service
	require.NoError(t, db.Delete(&models.Question{}, qs[0].ID).Error)
	qs, err = svc.Questions(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, qs, 2)

	require.NoError(t, svc.DeleteQuestion(ctx, qs[1].ID))
	assert.False(t, mr.Exists(key))

	qs, err = svc.Questions(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestAddQuestionExplicitZeroOrder(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	course := testutil.SeedCourse(t, db, "A1")
	quiz := testutil.SeedQuiz(t, db, course.ID, 2)

	zero := 0
	q, err := svc.AddQuestion(ctx, quiz.ID, QuestionInput{
		Text: "warm-up", Options: []string{"a", "b", "c"}, Order: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, q.Order)

	qs, err := svc.Questions(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "warm-up", qs[0].Text)
}

func TestEnrollOpensLaterCourses(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	user := testutil.SeedUser(t, db, "ana@example.com", true)
	other := testutil.SeedUser(t, db, "ben@example.com", false)

	course, err := svc.CreateCourse(ctx, "B2", "Upper intermediate")
	require.NoError(t, err)
	quiz, err := svc.CreateQuiz(ctx, QuizInput{Title: "Conditionals", CourseID: &course.ID})
	require.NoError(t, err)

	_, err = svc.CheckAccess(ctx, user.ID, quiz.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	n, err := svc.Enroll(ctx, EnrollmentInput{CourseID: course.ID, Emails: []string{" ANA@example.com ", "ghost@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.CheckAccess(ctx, user.ID, quiz.ID)
	require.NoError(t, err)

	// repeat and single-email form
	n, err = svc.Enroll(ctx, EnrollmentInput{CourseID: course.ID, Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = svc.Enroll(ctx, EnrollmentInput{CourseID: course.ID, Email: other.Email})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int64
	require.NoError(t, db.Model(&models.Enrollment{}).Where("course_id = ?", course.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	students, err := svc.CourseStudents(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	emails := []string{students[0].Email, students[1].Email}
	assert.ElementsMatch(t, []string{"ana@example.com", "ben@example.com"}, emails)

	_, err = svc.Enroll(ctx, EnrollmentInput{CourseID: course.ID, Emails: []string{"ghost@example.com"}})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	_, err = svc.Enroll(ctx, EnrollmentInput{CourseID: 999, Email: "ana@example.com"})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	_, err = svc.Enroll(ctx, EnrollmentInput{CourseID: course.ID, Emails: []string{" "}})
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))
	_, err = svc.CourseStudents(ctx, 999)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
