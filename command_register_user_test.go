package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/leadnest/leadnest-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegisterHandler(t *testing.T) (*auth.RegisterUserHandler, auth.RepositoryManager, *MockActivitySink) {
	t.Helper()
	repo := newTestRepo(t)
	sink := &MockActivitySink{}
	handler := auth.NewRegisterUserHandler(repo).
		WithLogger(nopLogger{}).
		WithHasher(plainHasher{}).
		WithActivitySink(sink)
	return handler, repo, sink
}

func TestRegisterUserHandler(t *testing.T) {
	handler, repo, sink := newRegisterHandler(t)
	ctx := context.Background()

	user, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "New.Owner@Example.com",
		Password: "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.owner@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.Equal(t, auth.SubscriptionTrial, user.SubscriptionStatus)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventUserRegistered}, sink.Types())

	stored, err := repo.Users().GetByEmail(ctx, "new.owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "plain:Secret123", stored.PasswordHash)
}

func TestRegisterUserHandlerDuplicate(t *testing.T) {
	handler, _, _ := newRegisterHandler(t)
	ctx := context.Background()

	_, err := handler.Execute(ctx, auth.RegisterUserMessage{Email: "dup@example.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = handler.Execute(ctx, auth.RegisterUserMessage{Email: "Dup@Example.com", Password: "Other1234"})
	require.ErrorIs(t, err, auth.ErrDuplicateEmail)
	assert.Equal(t, 400, auth.StatusCode(err))
}

func TestRegisterUserHandlerValidation(t *testing.T) {
	handler, repo, sink := newRegisterHandler(t)

	cases := []struct {
		name   string
		msg    auth.RegisterUserMessage
		field  string
		reason string
	}{
		{"bad email", auth.RegisterUserMessage{Email: "not-an-email", Password: "Secret123"}, "email", "Invalid email format"},
		{"short password", auth.RegisterUserMessage{Email: "a@example.com", Password: "Se1"}, "password", "Password must be at least 8 characters long"},
		{"no upper", auth.RegisterUserMessage{Email: "a@example.com", Password: "secret123"}, "password", "Password must contain at least one uppercase letter"},
		{"no lower", auth.RegisterUserMessage{Email: "a@example.com", Password: "SECRET123"}, "password", "Password must contain at least one lowercase letter"},
		{"no digit", auth.RegisterUserMessage{Email: "a@example.com", Password: "SecretSecret"}, "password", "Password must contain at least one number"},
		{"multi byte short", auth.RegisterUserMessage{Email: "a@example.com", Password: "Ééééé1a"}, "password", "Password must be at least 8 characters long"},
		{"over bcrypt limit", auth.RegisterUserMessage{Email: "a@example.com", Password: "Aa1" + strings.Repeat("x", 77)}, "password", "Password must be at most 72 bytes long"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := handler.Execute(context.Background(), tc.msg)
			require.Error(t, err)
			field, reason, ok := auth.ValidationField(err)
			require.True(t, ok)
			assert.Equal(t, tc.field, field)
			assert.Equal(t, tc.reason, reason)
			assert.Equal(t, 400, auth.StatusCode(err))
		})
	}

	_, err := repo.Users().GetByEmail(context.Background(), "a@example.com")
	assert.Error(t, err)
	assert.Empty(t, sink.Types())
}

func TestRegisterUserHandlerCancelledContext(t *testing.T) {
	handler, _, _ := newRegisterHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Execute(ctx, auth.RegisterUserMessage{Email: "a@example.com", Password: "Secret123"})
	assert.Error(t, err)
}

func TestRegisterUserHandlerBcryptLimit(t *testing.T) {
	repo := newTestRepo(t)
	handler := auth.NewRegisterUserHandler(repo).WithLogger(nopLogger{})

	_, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "long@example.com",
		Password: "Aa1" + strings.Repeat("x", 77),
	})
	require.Error(t, err)

	field, _, ok := auth.ValidationField(err)
	require.True(t, ok)
	assert.Equal(t, "password", field)
	assert.Equal(t, 400, auth.StatusCode(err))

	user, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "edge@example.com",
		Password: "Aa1" + strings.Repeat("x", 69),
	})
	require.NoError(t, err)
	assert.Equal(t, "edge@example.com", user.Email)
}
