// Package audit records security-relevant account activity: logins, logouts,
// refresh token reuse, password changes and admin session revocations.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	ActionRegister       = "register"
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionLogout         = "logout"
	ActionRefresh        = "token_refresh"
	ActionRefreshReuse   = "refresh_token_reuse"
	ActionPasswordChange = "password_change"
	ActionSessionsRevoke = "sessions_revoked"
	ActionRoleChange     = "role_change"
	ActionDeactivate     = "account_deactivated"
)

type Entry struct {
	Action    string            `bson:"action" json:"action"`
	UserID    string            `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Email     string            `bson:"email,omitempty" json:"email,omitempty"`
	IP        string            `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string            `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Meta      map[string]string `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
}

// Recorder persists audit entries. Recording is best-effort: failures are
// logged by the implementation and never fail the user's request.
type Recorder interface {
	Record(ctx context.Context, e Entry)
	Close(ctx context.Context) error
}

// LogRecorder writes entries to the process log
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log.Named("audit")}
}

func (r *LogRecorder) Record(_ context.Context, e Entry) {
	level := zap.InfoLevel
	if e.Action == ActionRefreshReuse || e.Action == ActionLoginFailure {
		level = zap.WarnLevel
	}
	r.log.Check(level, "Audit").Write(
		zap.String("action", e.Action),
		zap.String("user_id", e.UserID),
		zap.String("email", e.Email),
		zap.String("ip", e.IP),
		zap.Any("meta", e.Meta),
	)
}

func (r *LogRecorder) Close(context.Context) error { return nil }

// Reader is implemented by recorders that can list past entries
type Reader interface {
	Recent(ctx context.Context, userID string, limit int64) ([]Entry, error)
}

// Memory keeps entries in a slice; tests assert on it
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(_ context.Context, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *Memory) Recent(_ context.Context, userID string, limit int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *Memory) Close(context.Context) error { return nil }

// Actions returns recorded actions in order
func (m *Memory) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}
