package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/mailer"
	"langlearn-server/internal/models"
	"langlearn-server/pkg/apperr"
)

const (
	minPasswordLen  = 8
	verificationTTL = 24 * time.Hour
	resetTTL        = 2 * time.Hour

	MaxLoginFailures = 5
)

var errInvalidCredentials = apperr.Unauthenticated("invalid credentials")

// LoginLimiter counts failed logins per email. Implemented by the redis cache.
type LoginLimiter interface {
	LoginFailures(ctx context.Context, email string) (int64, error)
	RecordLoginFailure(ctx context.Context, email string) (int64, error)
	ResetLoginFailures(ctx context.Context, email string) error
}

type Service struct {
	repo     *Repository
	sessions *SessionManager
	mail     mailer.Mailer
	limiter  LoginLimiter
	baseURL  string
	log      *logger.Logger
	now      func() time.Time
	verify   func(password, stored string) (ok bool, legacy bool)
}

func NewService(repo *Repository, sessions *SessionManager, mail mailer.Mailer, baseURL string, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		mail:     mail,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log.With("service", "AuthService"),
		now:      func() time.Time { return time.Now().UTC() },
		verify:   VerifyPassword,
	}
}

// SetLimiter enables login throttling.
func (s *Service) SetLimiter(l LoginLimiter) {
	s.limiter = l
}

func (s *Service) Sessions() *SessionManager { return s.sessions }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}

func (s *Service) Register(ctx context.Context, email, name, password string) error {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if !validEmail(email) {
		return apperr.Invalid("invalid email")
	}
	if len(password) < minPasswordLen {
		return apperr.Invalid("password must be at least 8 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	raw, err := GenerateToken(tokenBytes)
	if err != nil {
		return err
	}
	now := s.now()

	err = s.repo.Transaction(ctx, func(tx *Repository) error {
		user, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		switch {
		case user != nil && user.IsVerified:
			return apperr.Conflict("email already registered")
		case user != nil:
			if err := tx.OverwriteUnverified(ctx, user.ID, name, hash); err != nil {
				return err
			}
		default:
			user = &models.User{Email: email, Name: name, PasswordHash: hash}
			if err := tx.CreateUser(ctx, user); err != nil {
				return err
			}
		}
		return tx.CreateVerification(ctx, &models.EmailVerification{
			UserID:    user.ID,
			TokenHash: HashToken(raw),
			ExpiresAt: now.Add(verificationTTL),
		})
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return err
		}
		return fmt.Errorf("register: %w", err)
	}

	link := s.baseURL + "/auth/verify?token=" + url.QueryEscape(raw)
	if err := s.mail.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Confirm your email",
		Text:    "Open this link to activate your account: " + link,
	}); err != nil {
		return apperr.Upstream("could not send verification email", err)
	}
	s.log.Info("user registered", "email", email)
	return nil
}

// Verify confirms an email verification token and returns a new session token.
func (s *Service) Verify(ctx context.Context, rawToken string, meta ClientMeta) (*models.User, string, error) {
	if rawToken == "" {
		return nil, "", apperr.Invalid("missing token")
	}
	now := s.now()

	var user *models.User
	var session string
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		v, err := tx.FindLiveVerification(ctx, HashToken(rawToken), now)
		if err != nil {
			return err
		}
		if v == nil {
			return apperr.Invalid("invalid or expired token")
		}
		consumed, err := tx.ConsumeVerification(ctx, v.ID, now)
		if err != nil {
			return err
		}
		if !consumed {
			return apperr.Invalid("invalid or expired token")
		}
		if err := tx.MarkVerified(ctx, v.UserID); err != nil {
			return err
		}
		if err := tx.EnrollInAllCourses(ctx, v.UserID, now); err != nil {
			return err
		}
		if user, err = tx.GetUserByID(ctx, v.UserID); err != nil {
			return err
		}
		if user == nil {
			return apperr.Invalid("invalid or expired token")
		}
		session, err = s.sessions.issue(ctx, tx, user.ID, meta)
		return err
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("verify email: %w", err)
	}
	s.log.Info("email verified", "user_id", user.ID)
	return user, session, nil
}

func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", apperr.Invalid("email and password are required")
	}
	if err := s.checkThrottle(ctx, email); err != nil {
		return nil, "", err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if user == nil {
		// same bcrypt cost as a known account
		s.verify(password, DecoyHash())
		s.recordFailure(ctx, email)
		return nil, "", errInvalidCredentials
	}
	ok, legacy := s.verify(password, user.PasswordHash)
	if !ok {
		s.recordFailure(ctx, email)
		return nil, "", errInvalidCredentials
	}
	if !user.IsVerified {
		return nil, "", apperr.Forbidden("email not verified")
	}
	if legacy {
		s.upgradeHash(ctx, user.ID, password)
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLoginFailures(ctx, email); err != nil {
			s.log.Warn("reset login failures", "error", err)
		}
	}

	token, err := s.sessions.Issue(ctx, user.ID, meta)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

func (s *Service) checkThrottle(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}
	n, err := s.limiter.LoginFailures(ctx, email)
	if err != nil {
		s.log.Warn("login limiter unavailable", "error", err)
		return nil
	}
	if n >= MaxLoginFailures {
		return apperr.TooManyRequests("too many failed login attempts, try again later")
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if _, err := s.limiter.RecordLoginFailure(ctx, email); err != nil {
		s.log.Warn("record login failure", "error", err)
	}
}

func (s *Service) upgradeHash(ctx context.Context, userID uint, password string) {
	hash, err := HashPassword(password)
	if err == nil {
		err = s.repo.SetPasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.log.Warn("legacy hash upgrade failed", "user_id", userID, "error", err)
		return
	}
	s.log.Info("legacy password hash upgraded", "user_id", userID)
}

// QRLogin refreshes a token carried over from another device.
func (s *Service) QRLogin(ctx context.Context, rawToken string) (*models.User, error) {
	ok, err := s.sessions.Refresh(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}
	user, err := s.sessions.Resolve(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}
	return user, nil
}

// RequestReset never reveals whether the email belongs to an account.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	if user == nil {
		return nil
	}

	raw, err := GenerateToken(tokenBytes)
	if err != nil {
		return err
	}
	if err := s.repo.CreateReset(ctx, &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: s.now().Add(resetTTL),
	}); err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	link := s.baseURL + "/auth/reset?token=" + url.QueryEscape(raw)
	if err := s.mail.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Reset your password",
		Text:    "Open this link to choose a new password: " + link,
	}); err != nil {
		s.log.Error("reset mail failed", "user_id", user.ID, "error", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, rawToken, password string) error {
	if rawToken == "" {
		return apperr.Invalid("missing token")
	}
	if len(password) < minPasswordLen {
		return apperr.Invalid("password must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.now()

	var userID uint
	err = s.repo.Transaction(ctx, func(tx *Repository) error {
		p, err := tx.FindLiveReset(ctx, HashToken(rawToken), now)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.Invalid("invalid or expired token")
		}
		consumed, err := tx.ConsumeReset(ctx, p.ID, now)
		if err != nil {
			return err
		}
		if !consumed {
			return apperr.Invalid("invalid or expired token")
		}
		if err := tx.SetPasswordHash(ctx, p.UserID, hash); err != nil {
			return err
		}
		userID = p.UserID
		return s.sessions.revokeAll(ctx, tx, p.UserID)
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}
	s.log.Info("password reset", "user_id", userID)
	return nil
}
