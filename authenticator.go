package auth

import (
	"context"
	"time"
)

type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	tokenTTL     time.Duration
	logger       Logger
	activitySink ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokenService TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		tokenTTL:     DefaultTokenTTL,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithTokenTTL sets the lifetime of tokens issued by Login
func (s *Auther) WithTokenTTL(ttl time.Duration) *Auther {
	s.tokenTTL = ttl
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and returns a signed access token
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login verify identity error", "email", email, "error", err)
		emitActivity(ctx, s.logger, s.activitySink, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata: map[string]any{
				"email": email,
				"error": err.Error(),
			},
		})
		return "", err
	}

	if !user.IsActive {
		s.logger.Warn("Login blocked for inactive user", "user_id", user.ID.String())
		emitActivity(ctx, s.logger, s.activitySink, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			UserID:    user.ID.String(),
			Metadata: map[string]any{
				"email": email,
				"error": ErrInactiveUser.Error(),
			},
		})
		return "", ErrInactiveUser
	}

	token, err := s.tokenService.Issue(user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error("Login failed to issue token", "user_id", user.ID.String(), "error", err)
		return "", err
	}

	emitActivity(ctx, s.logger, s.activitySink, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
	})

	return token, nil
}

// SessionFromToken validates the token and returns its claims
func (s *Auther) SessionFromToken(token string) (Session, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// CurrentUser resolves the active user a token was issued for
func (s *Auther) CurrentUser(ctx context.Context, token string) (*User, error) {
	session, err := s.SessionFromToken(token)
	if err != nil {
		return nil, err
	}
	return s.UserFromSession(ctx, session)
}

// UserFromSession loads the user named by the session subject
func (s *Auther) UserFromSession(ctx context.Context, session Session) (*User, error) {
	user, err := s.provider.FindIdentityByEmail(ctx, session.Subject())
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return user, nil
}
