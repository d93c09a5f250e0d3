package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/audit"
	"restaurant-ordering-api/config"
	"restaurant-ordering-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 8

// ClientInfo describes where a session was opened from
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Session is the result of register, login and refresh
type Session struct {
	User             *models.User `json:"user"`
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_token_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_token_expires_at"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

type AuthService struct {
	db         *gorm.DB
	tokens     *TokenManager
	audit      audit.Recorder
	metrics    *Metrics
	log        *zap.Logger
	refreshTTL time.Duration
	retention  time.Duration
	bcryptCost int
	now        func() time.Time
	// compared against when the email is unknown so both paths hash once
	dummyHash []byte
}

func NewAuthService(db *gorm.DB, tokens *TokenManager, cfg config.AuthConfig, rec audit.Recorder, metrics *Metrics, log *zap.Logger) *AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &AuthService{
		db:         db,
		tokens:     tokens,
		audit:      rec,
		metrics:    metrics,
		log:        log.Named("auth"),
		refreshTTL: cfg.RefreshTTL,
		retention:  cfg.RefreshRetention,
		bcryptCost: cost,
		now:        func() time.Time { return time.Now().UTC() },
		dummyHash:  dummy,
	}
}

// Tokens exposes the access token verifier used by the auth middleware
func (s *AuthService) Tokens() *TokenManager { return s.tokens }

func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (*Session, error) {
	var fields fieldErrors
	if strings.TrimSpace(in.Name) == "" {
		fields.add("name", "is required")
	}
	if !looksLikeEmail(in.Email) {
		fields.add("email", "must be a valid email address")
	}
	if len(in.Password) < MinPasswordLength {
		fields.add("password", "must be at least 8 characters")
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(in.Email)
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Internal("check email", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}
	user := models.NewUser(in.Name, email, string(hash), in.Phone)

	var session *Session
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("Email already registered")
			}
			return apperrors.Internal("create user", err)
		}
		var err error
		session, err = s.openSession(tx, user, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action: audit.ActionRegister, UserID: user.ID, Email: user.Email,
		IP: client.IP, UserAgent: client.UserAgent, CreatedAt: s.now(),
	})
	return session, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*Session, error) {
	email = models.NormalizeEmail(email)
	invalid := apperrors.Unauthorized("Invalid email or password")

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.loginFailed(ctx, "", email, "unknown_email", client)
		return nil, invalid
	}
	if err != nil {
		return nil, apperrors.Internal("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.loginFailed(ctx, user.ID, email, "bad_password", client)
		return nil, invalid
	}
	if !user.Active {
		s.loginFailed(ctx, user.ID, email, "inactive", client)
		return nil, apperrors.Unauthorized("Account is deactivated")
	}

	now := s.now()
	var session *Session
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("last_login", now).Error; err != nil {
			return apperrors.Internal("update last login", err)
		}
		user.LastLogin = &now
		var err error
		session, err = s.openSession(tx, &user, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.login("success")
	s.audit.Record(ctx, audit.Entry{
		Action: audit.ActionLoginSuccess, UserID: user.ID, Email: user.Email,
		IP: client.IP, UserAgent: client.UserAgent, CreatedAt: now,
	})
	return session, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email, reason string, client ClientInfo) {
	s.metrics.login("failure")
	s.audit.Record(ctx, audit.Entry{
		Action: audit.ActionLoginFailure, UserID: userID, Email: email,
		IP: client.IP, UserAgent: client.UserAgent,
		Meta: map[string]string{"reason": reason}, CreatedAt: s.now(),
	})
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked with a conditional update so two concurrent exchanges of the same
// token cannot both succeed.
func (s *AuthService) Refresh(ctx context.Context, token string, client ClientInfo) (*Session, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("Refresh token required")
	}
	now := s.now()

	var (
		session *Session
		reused  *models.RefreshToken
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.RefreshToken
		if err := tx.Where("token = ?", token).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Unauthorized("Invalid refresh token")
			}
			return apperrors.Internal("load refresh token", err)
		}
		if rec.Revoked {
			reused = &rec
			return apperrors.Unauthorized("Refresh token has been revoked")
		}
		if !now.Before(rec.ExpiresAt) {
			return apperrors.Unauthorized("Refresh token expired")
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ? AND expires_at > ?", rec.ID, false, now).
			Updates(map[string]interface{}{
				"revoked":        true,
				"revoked_at":     now,
				"revoked_reason": models.RevokeRotated,
			})
		if res.Error != nil {
			return apperrors.Internal("revoke refresh token", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Unauthorized("Refresh token has been revoked")
		}

		var user models.User
		if err := tx.First(&user, "id = ?", rec.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Unauthorized("Invalid refresh token")
			}
			return apperrors.Internal("load user", err)
		}
		if !user.Active {
			return apperrors.Unauthorized("Account is deactivated")
		}
		var err error
		session, err = s.openSession(tx, &user, client)
		return err
	})

	if reused != nil {
		s.metrics.refresh("reuse")
		s.audit.Record(ctx, audit.Entry{
			Action: audit.ActionRefreshReuse, UserID: reused.UserID,
			IP: client.IP, UserAgent: client.UserAgent,
			Meta:      map[string]string{"token_id": reused.ID, "revoked_reason": reused.RevokedReason},
			CreatedAt: now,
		})
	}
	if err != nil {
		if reused == nil {
			s.metrics.refresh("failure")
		}
		return nil, err
	}

	s.metrics.refresh("success")
	s.audit.Record(ctx, audit.Entry{
		Action: audit.ActionRefresh, UserID: session.User.ID, Email: session.User.Email,
		IP: client.IP, UserAgent: client.UserAgent, CreatedAt: now,
	})
	return session, nil
}

// Logout revokes the given refresh token. Unknown or already revoked tokens
// are not an error.
func (s *AuthService) Logout(ctx context.Context, token string, client ClientInfo) error {
	if token == "" {
		return nil
	}
	now := s.now()
	var rec models.RefreshToken
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Internal("load refresh token", err)
	}
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", rec.ID, false).
		Updates(map[string]interface{}{
			"revoked":        true,
			"revoked_at":     now,
			"revoked_reason": models.RevokeLogout,
		})
	if res.Error != nil {
		return apperrors.Internal("revoke refresh token", res.Error)
	}
	if res.RowsAffected > 0 {
		s.audit.Record(ctx, audit.Entry{
			Action: audit.ActionLogout, UserID: rec.UserID,
			IP: client.IP, UserAgent: client.UserAgent, CreatedAt: now,
		})
	}
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every refresh token the user holds.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string, client ClientInfo) error {
	if len(next) < MinPasswordLength {
		return apperrors.Field("new_password", "must be at least 8 characters")
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperrors.Field("current_password", "is incorrect")
	}
	if current == next {
		return apperrors.Field("new_password", "must differ from the current password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return apperrors.Internal("hash password", err)
	}

	var revoked int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return apperrors.Internal("update password", err)
		}
		var err error
		revoked, err = s.revokeAll(tx, user.ID, models.RevokePasswordChange)
		return err
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		Action: audit.ActionPasswordChange, UserID: user.ID, Email: user.Email,
		IP: client.IP, UserAgent: client.UserAgent,
		Meta: map[string]string{"sessions_revoked": itoa(revoked)}, CreatedAt: s.now(),
	})
	return nil
}

// RevokeAllSessions revokes every live refresh token of userID
func (s *AuthService) RevokeAllSessions(ctx context.Context, actor *Identity, userID string) (int64, error) {
	if err := RequireOwnerOrAdmin(actor, userID); err != nil {
		return 0, err
	}
	n, err := s.revokeAll(s.db.WithContext(ctx), userID, models.RevokeAdminAction)
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action: audit.ActionSessionsRevoke, UserID: userID,
		Meta:      map[string]string{"by": actor.UserID, "count": itoa(n)},
		CreatedAt: s.now(),
	})
	return n, nil
}

func (s *AuthService) revokeAll(tx *gorm.DB, userID, reason string) (int64, error) {
	res := tx.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{
			"revoked":        true,
			"revoked_at":     s.now(),
			"revoked_reason": reason,
		})
	if res.Error != nil {
		return 0, apperrors.Internal("revoke sessions", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeExpiredTokens deletes refresh tokens that expired or were revoked
// longer ago than the retention window.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked = ? AND revoked_at < ?)", cutoff, true, cutoff).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, apperrors.Internal("purge refresh tokens", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("Purged refresh tokens", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// openSession issues an access token and persists a fresh refresh token
func (s *AuthService) openSession(tx *gorm.DB, user *models.User, client ClientInfo) (*Session, error) {
	access, accessExp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Internal("sign access token", err)
	}
	value, err := newOpaqueToken()
	if err != nil {
		return nil, apperrors.Internal("generate refresh token", err)
	}
	now := s.now()
	rec := models.RefreshToken{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Token:       value,
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedByIP: client.IP,
		UserAgent:   truncate(client.UserAgent, 255),
		CreatedAt:   now,
	}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, apperrors.Internal("store refresh token", err)
	}
	return &Session{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     value,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}
