package auth_test

import (
	"context"
	"time"

	"github.com/leadnest/leadnest-auth"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (*auth.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockTokenService implements auth.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Issue(subject string, ttl time.Duration) (string, error) {
	args := m.Called(subject, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(token string) (*auth.Claims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*auth.Claims)
	return claims, args.Error(1)
}

// MockUserFinder implements auth.UserFinder
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockRegistrar implements auth.Registrar
type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) Execute(ctx context.Context, msg auth.RegisterUserMessage) (*auth.User, error) {
	args := m.Called(ctx, msg)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockActivitySink records emitted events
type MockActivitySink struct {
	Events []auth.ActivityEvent
}

func (m *MockActivitySink) Record(_ context.Context, event auth.ActivityEvent) error {
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockActivitySink) Types() []auth.ActivityEventType {
	out := make([]auth.ActivityEventType, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.EventType)
	}
	return out
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// plainHasher keeps tests fast where bcrypt is not under test
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(password, digest string) bool { return digest == "plain:"+password }
