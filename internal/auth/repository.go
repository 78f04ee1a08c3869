package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
)

type Repository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepository(db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, log: log.With("repository", "auth")}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, log: r.log})
	})
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// OverwriteUnverified replaces name and password of a user that never
// confirmed its email.
func (r *Repository) OverwriteUnverified(ctx context.Context, userID uint, name, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_verified = ?", userID, false).
		Updates(map[string]interface{}{"name": name, "password_hash": passwordHash}).Error
}

func (r *Repository) SetPasswordHash(ctx context.Context, userID uint, hash string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash).Error
}

func (r *Repository) MarkVerified(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_verified", true).Error
}

func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ResolveUser returns the owner of the session with the given hash if that
// session is still live at now.
func (r *Repository) ResolveUser(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.user_id = users.id").
		Where("sessions.token_hash = ? AND sessions.expires_at > ?", tokenHash, now).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExtendSession moves the expiry of a live session. It reports whether a
// session was updated.
func (r *Repository) ExtendSession(ctx context.Context, tokenHash string, now, expiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		Update("expires_at", expiresAt)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) ExpireSessionByHash(ctx context.Context, tokenHash string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		Update("expires_at", now.Add(-time.Second)).Error
}

func (r *Repository) ExpireUserSessions(ctx context.Context, userID uint, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Update("expires_at", now.Add(-time.Second))
	return res.RowsAffected, res.Error
}

func (r *Repository) CreateVerification(ctx context.Context, v *models.EmailVerification) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *Repository) FindLiveVerification(ctx context.Context, tokenHash string, now time.Time) (*models.EmailVerification, error) {
	var v models.EmailVerification
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND consumed_at IS NULL AND expires_at > ?", tokenHash, now).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ConsumeVerification marks the token used; false means someone else got there first.
func (r *Repository) ConsumeVerification(ctx context.Context, id uint, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.EmailVerification{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) CreateReset(ctx context.Context, p *models.PasswordReset) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) FindLiveReset(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordReset, error) {
	var p models.PasswordReset
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND consumed_at IS NULL AND expires_at > ?", tokenHash, now).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ConsumeReset(ctx context.Context, id uint, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PasswordReset{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now)
	return res.RowsAffected > 0, res.Error
}

// EnrollInAllCourses adds an enrollment for every course the user is not
// already enrolled in.
func (r *Repository) EnrollInAllCourses(ctx context.Context, userID uint, now time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO enrollments (user_id, course_id, created_at)
		SELECT ?, c.id, ? FROM courses c
		WHERE NOT EXISTS (
			SELECT 1 FROM enrollments e WHERE e.user_id = ? AND e.course_id = c.id
		)`, userID, now, userID).Error
}
