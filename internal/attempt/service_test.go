package attempt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"langlearn-server/internal/models"
	"langlearn-server/internal/quiz"
	"langlearn-server/internal/testutil"
	"langlearn-server/pkg/apperr"
)

type event struct {
	userID uint
	kind   string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Notify(userID uint, messageType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{userID: userID, kind: messageType})
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	events *recorder
	user   *models.User
	quiz   *models.Quiz
}

// newFixture enrolls one user in a course with a quiz of n questions.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	catalog := quiz.NewService(quiz.NewRepository(db, log), log)
	svc := NewService(NewRepository(db, log), catalog, log)
	events := &recorder{}
	svc.SetNotifier(events)

	user := testutil.SeedUser(t, db, "ana@example.com", true)
	course := testutil.SeedCourse(t, db, "A1")
	testutil.Enroll(t, db, user.ID, course.ID)
	return &fixture{
		svc:    svc,
		db:     db,
		events: events,
		user:   user,
		quiz:   testutil.SeedQuiz(t, db, course.ID, n),
	}
}

func (f *fixture) start(t *testing.T) *StartResult {
	t.Helper()
	res, err := f.svc.Start(context.Background(), f.user.ID, f.quiz.ID)
	require.NoError(t, err)
	return res
}

func (f *fixture) answer(t *testing.T, attemptID uint, q models.Question, o models.Option) bool {
	t.Helper()
	correct, err := f.svc.Answer(context.Background(), f.user.ID, attemptID, q.ID, o.ID)
	require.NoError(t, err)
	return correct
}

func TestStartRequiresQuizAndEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	_, err := f.svc.Start(ctx, f.user.ID, 9999)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	stranger := testutil.SeedUser(t, f.db, "ben@example.com", true)
	_, err = f.svc.Start(ctx, stranger.ID, f.quiz.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestStartResumesOpenAttempt(t *testing.T) {
	f := newFixture(t, 3)

	first := f.start(t)
	assert.False(t, first.Resumed)
	assert.NotZero(t, first.Attempt.ID)
	assert.Nil(t, first.Attempt.FinishedAt)
	assert.Empty(t, first.Answers)
	require.Len(t, first.Questions, 3)

	f.answer(t, first.Attempt.ID, f.quiz.Questions[0], testutil.CorrectOption(f.quiz.Questions[0]))

	second := f.start(t)
	assert.True(t, second.Resumed)
	assert.Equal(t, first.Attempt.ID, second.Attempt.ID)
	require.Len(t, second.Answers, 1)
	assert.Equal(t, f.quiz.Questions[0].ID, second.Answers[0].QuestionID)
	assert.Equal(t, first.Questions, second.Questions, "display order is stable per attempt")

	for _, q := range second.Questions {
		for _, o := range q.Options {
			assert.Nil(t, o.IsCorrect)
		}
	}
	assert.Equal(t, []string{EventStarted, EventAnswered}, f.events.kinds())
}

func TestFinishScoresAllAnswered(t *testing.T) {
	f := newFixture(t, 4)
	a := f.start(t).Attempt
	qs := f.quiz.Questions

	assert.True(t, f.answer(t, a.ID, qs[0], testutil.CorrectOption(qs[0])))
	assert.True(t, f.answer(t, a.ID, qs[1], testutil.CorrectOption(qs[1])))
	assert.True(t, f.answer(t, a.ID, qs[2], testutil.CorrectOption(qs[2])))
	assert.False(t, f.answer(t, a.ID, qs[3], testutil.WrongOption(qs[3])))

	score, err := f.svc.Finish(context.Background(), f.user.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScoreSummary{ScorePercent: 75, TotalCorrect: 3, TotalWrong: 1, TotalQuestions: 4}, *score)

	var stored models.QuizAttempt
	require.NoError(t, f.db.First(&stored, a.ID).Error)
	require.NotNil(t, stored.FinishedAt)
	require.NotNil(t, stored.ScorePercent)
	assert.Equal(t, 75, *stored.ScorePercent)
	assert.Equal(t, 3, *stored.TotalCorrect)
	assert.Equal(t, 1, *stored.TotalWrong)
}

func TestFinishPartialAttempt(t *testing.T) {
	f := newFixture(t, 4)
	a := f.start(t).Attempt
	qs := f.quiz.Questions

	f.answer(t, a.ID, qs[0], testutil.CorrectOption(qs[0]))
	f.answer(t, a.ID, qs[1], testutil.WrongOption(qs[1]))

	score, err := f.svc.Finish(context.Background(), f.user.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, score.TotalQuestions)
	assert.Equal(t, 1, score.TotalCorrect)
	assert.Equal(t, 1, score.TotalWrong, "unanswered questions are not wrong")
	assert.Equal(t, 25, score.ScorePercent)
}

func TestFinishEmptyQuiz(t *testing.T) {
	f := newFixture(t, 0)
	a := f.start(t).Attempt

	score, err := f.svc.Finish(context.Background(), f.user.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScoreSummary{}, *score)
}

func TestFinishIgnoresDeletedQuestions(t *testing.T) {
	f := newFixture(t, 3)
	a := f.start(t).Attempt
	qs := f.quiz.Questions

	f.answer(t, a.ID, qs[0], testutil.CorrectOption(qs[0]))
	f.answer(t, a.ID, qs[1], testutil.WrongOption(qs[1]))
	require.NoError(t, f.db.Delete(&models.Question{}, qs[1].ID).Error)

	score, err := f.svc.Finish(context.Background(), f.user.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScoreSummary{ScorePercent: 50, TotalCorrect: 1, TotalWrong: 0, TotalQuestions: 2}, *score)
}

func TestScoreRounding(t *testing.T) {
	assert.Equal(t, 67, scorePercent(2, 3))
	assert.Equal(t, 33, scorePercent(1, 3))
	assert.Equal(t, 50, scorePercent(1, 2))
	assert.Equal(t, 0, scorePercent(0, 0))
	assert.Equal(t, 100, scorePercent(7, 7))
}

func TestAnswerOverwrite(t *testing.T) {
	f := newFixture(t, 2)
	a := f.start(t).Attempt
	q := f.quiz.Questions[0]

	assert.False(t, f.answer(t, a.ID, q, testutil.WrongOption(q)))
	assert.True(t, f.answer(t, a.ID, q, testutil.CorrectOption(q)))

	var answers []models.Answer
	require.NoError(t, f.db.Where("quiz_attempt_id = ?", a.ID).Find(&answers).Error)
	require.Len(t, answers, 1)
	assert.Equal(t, testutil.CorrectOption(q).ID, answers[0].SelectedOptionID)
	assert.True(t, answers[0].IsCorrect)
}

func TestAnswerValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	a := f.start(t).Attempt
	q0, q1 := f.quiz.Questions[0], f.quiz.Questions[1]

	other := testutil.SeedQuiz(t, f.db, *f.quiz.CourseID, 1)
	foreign := other.Questions[0]

	_, err := f.svc.Answer(ctx, f.user.ID, a.ID, foreign.ID, testutil.CorrectOption(foreign).ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err), "question from another quiz")

	_, err = f.svc.Answer(ctx, f.user.ID, a.ID, q0.ID, testutil.CorrectOption(q1).ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err), "option from another question")

	stranger := testutil.SeedUser(t, f.db, "ben@example.com", true)
	_, err = f.svc.Answer(ctx, stranger.ID, a.ID, q0.ID, testutil.CorrectOption(q0).ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err), "attempt of another user")

	_, err = f.svc.Answer(ctx, f.user.ID, 9999, q0.ID, testutil.CorrectOption(q0).ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestRejectionsAfterFinish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	a := f.start(t).Attempt
	q := f.quiz.Questions[0]
	f.answer(t, a.ID, q, testutil.CorrectOption(q))

	score, err := f.svc.Finish(ctx, f.user.ID, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Answer(ctx, f.user.ID, a.ID, q.ID, testutil.WrongOption(q).ID)
	assert.Equal(t, apperr.CodeAlreadyFinished, apperr.CodeOf(err))

	_, err = f.svc.Finish(ctx, f.user.ID, a.ID)
	assert.Equal(t, apperr.CodeAlreadyFinished, apperr.CodeOf(err))

	var stored models.QuizAttempt
	require.NoError(t, f.db.First(&stored, a.ID).Error)
	assert.Equal(t, score.ScorePercent, *stored.ScorePercent)

	var answer models.Answer
	require.NoError(t, f.db.Where("quiz_attempt_id = ? AND question_id = ?", a.ID, q.ID).First(&answer).Error)
	assert.True(t, answer.IsCorrect)

	// a fresh start after finishing opens a new attempt
	next := f.start(t)
	assert.False(t, next.Resumed)
	assert.NotEqual(t, a.ID, next.Attempt.ID)
}

func TestFinishIfOpenIsConditional(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	a := f.start(t).Attempt
	repo := NewRepository(f.db, testutil.Logger(t))

	ok, err := repo.FinishIfOpen(ctx, a.ID, f.svc.now(), models.ScoreSummary{ScorePercent: 100, TotalCorrect: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.FinishIfOpen(ctx, a.ID, f.svc.now(), models.ScoreSummary{})
	require.NoError(t, err)
	assert.False(t, ok)

	var stored models.QuizAttempt
	require.NoError(t, f.db.First(&stored, a.ID).Error)
	assert.Equal(t, 100, *stored.ScorePercent)
}

func TestResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	a := f.start(t).Attempt
	qs := f.quiz.Questions

	_, err := f.svc.Results(ctx, f.user.ID, a.ID)
	assert.Equal(t, apperr.CodeNotFinished, apperr.CodeOf(err))

	f.answer(t, a.ID, qs[0], testutil.CorrectOption(qs[0]))
	f.answer(t, a.ID, qs[2], testutil.WrongOption(qs[2]))
	_, err = f.svc.Finish(ctx, f.user.ID, a.ID)
	require.NoError(t, err)

	stranger := testutil.SeedUser(t, f.db, "ben@example.com", true)
	_, err = f.svc.Results(ctx, stranger.ID, a.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	results, err := f.svc.Results(ctx, f.user.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, qs[i].ID, r.QuestionID)
		require.NotNil(t, r.CorrectOptionID)
		assert.Equal(t, testutil.CorrectOption(qs[i]).ID, *r.CorrectOptionID)
		assert.Equal(t, "b", *r.CorrectOptionText)
	}

	require.NotNil(t, results[0].IsCorrect)
	assert.True(t, *results[0].IsCorrect)
	assert.Nil(t, results[1].SelectedOptionID)
	assert.Nil(t, results[1].IsCorrect)
	require.NotNil(t, results[2].SelectedOptionID)
	assert.Equal(t, testutil.WrongOption(qs[2]).ID, *results[2].SelectedOptionID)
	assert.False(t, *results[2].IsCorrect)

	assert.Contains(t, f.events.kinds(), EventFinished)
}

func TestDisplayOrderSeeds(t *testing.T) {
	qs := []models.Question{
		{ID: 1, Options: []models.Option{{ID: 11}, {ID: 12}, {ID: 13}}},
		{ID: 2, Options: []models.Option{{ID: 21}, {ID: 22}, {ID: 23}}},
		{ID: 3, Options: []models.Option{{ID: 31}, {ID: 32}, {ID: 33}}},
	}

	views := DisplayOrder(5, qs)
	require.Len(t, views, 3)

	shuffled := Shuffle(qs, 5)
	for i, v := range views {
		assert.Equal(t, shuffled[i].ID, v.ID)
		want := Shuffle(shuffled[i].Options, 5+uint64(shuffled[i].ID))
		for j, o := range v.Options {
			assert.Equal(t, want[j].ID, o.ID)
		}
	}
	assert.Equal(t, uint(11), qs[0].Options[0].ID, "input untouched")
}
