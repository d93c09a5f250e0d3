package models

import "time"

// Reasons recorded when a refresh token is revoked
const (
	RevokeRotated        = "rotated"
	RevokeLogout         = "logout"
	RevokePasswordChange = "password_change"
	RevokeAdminAction    = "admin_action"
)

// RefreshToken is the server-side half of a session. Only this record can be
// revoked; access tokens simply expire.
type RefreshToken struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string     `json:"user_id" gorm:"not null;index;type:varchar(36)"`
	Token         string     `json:"-" gorm:"uniqueIndex;not null;type:varchar(128)"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null;index"`
	Revoked       bool       `json:"revoked" gorm:"not null;index"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
	CreatedByIP   string     `json:"created_by_ip"`
	UserAgent     string     `json:"user_agent"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Usable reports whether the token can still be exchanged at the given time
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
