package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"restaurant-ordering-api/audit"
	"restaurant-ordering-api/config"
	"restaurant-ordering-api/events"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db     *gorm.DB
	svc    *Services
	audit  *audit.Memory
	events *events.Recorder
	clock  *testClock
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret-with-enough-bytes-000",
			AccessTTL:        15 * time.Minute,
			RefreshTTL:       7 * 24 * time.Hour,
			RefreshRetention: 30 * 24 * time.Hour,
			BcryptCost:       bcrypt.MinCost,
		},
		Orders: config.OrdersConfig{EstimatedDelivery: 45 * time.Minute},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	mem := &audit.Memory{}
	rec := &events.Recorder{}
	svc := New(Deps{
		DB:          db,
		Config:      testConfig(),
		Audit:       mem,
		AuditReader: mem,
		Publisher:   rec,
		Metrics:     NewMetrics(prometheus.NewRegistry()),
		Log:         zap.NewNop(),
	})
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc.Auth.now = clock.Now
	svc.Auth.tokens.now = clock.Now
	svc.Orders.now = clock.Now
	svc.Reviews.now = clock.Now
	return &fixture{db: db, svc: svc, audit: mem, events: rec, clock: clock}
}

var client = ClientInfo{IP: "203.0.113.7", UserAgent: "test-agent"}

func (f *fixture) register(t *testing.T, name, email string) *Session {
	t.Helper()
	s, err := f.svc.Auth.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "Secret1!"}, client)
	require.NoError(t, err)
	return s
}

// withRole registers an account and promotes it directly in the store
func (f *fixture) withRole(t *testing.T, email string, role models.UserRole) *Identity {
	t.Helper()
	s := f.register(t, "User "+string(role), email)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", s.User.ID).Update("role", role).Error)
	return &Identity{UserID: s.User.ID, Email: s.User.Email, Role: role, Name: s.User.Name}
}

func identityOf(s *Session) *Identity {
	return &Identity{UserID: s.User.ID, Email: s.User.Email, Role: s.User.Role, Name: s.User.Name}
}

func (f *fixture) menuItem(t *testing.T, name string, price float64) *models.MenuItem {
	t.Helper()
	desc := "A house speciality cooked to order"
	cat := models.CategoryMain
	country := models.CountryItaly
	item, err := f.svc.Catalog.Create(context.Background(), MenuItemInput{
		Name: &name, Description: &desc, Price: &price, Category: &cat, Country: &country,
	})
	require.NoError(t, err)
	return item
}

func ptr[T any](v T) *T { return &v }
