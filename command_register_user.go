package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/leadnest/leadnest-auth/security"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the email format and password strength
func (e RegisterUserMessage) Validate() error {
	if !security.ValidateEmail(NormalizeEmail(e.Email)) {
		return NewValidationError("email", "Invalid email format")
	}

	if ok, reason := security.ValidatePassword(e.Password); !ok {
		return NewValidationError("password", reason)
	}

	return nil
}

// RegisterUserHandler creates users. The lookup and the insert share one
// transaction so a failed registration persists nothing.
type RegisterUserHandler struct {
	repo         RepositoryManager
	hasher       PasswordHasher
	logger       Logger
	activitySink ActivitySink
}

// NewRegisterUserHandler returns a handler using bcrypt for hashing
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:         repo,
		hasher:       BcryptHasher{},
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *RegisterUserHandler) WithHasher(hasher PasswordHasher) *RegisterUserHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)
	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
		}

		hash, err := h.hasher.Hash(event.Password)
		if err != nil {
			if _, _, ok := ValidationField(err); ok {
				return err
			}
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		record := &User{
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, record); err != nil {
			if goerrors.Is(err, ErrDuplicateEmail) {
				return ErrDuplicateEmail
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		h.logger.Warn("user registration failed", "email", email, "error", err)

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.logger.Info("user registered", "user_id", user.ID.String())
	emitActivity(ctx, h.logger, h.activitySink, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
	})

	return user, nil
}
