package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// UserFinder is the read side of the credential store
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider verifies credentials against the store
type UserProvider struct {
	store  UserFinder
	hasher PasswordHasher
	logger Logger

	dummyOnce sync.Once
	dummyHash string
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	return &UserProvider{
		store:  store,
		hasher: BcryptHasher{},
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

func (u *UserProvider) WithHasher(h PasswordHasher) *UserProvider {
	if h != nil {
		u.hasher = h
	}
	return u
}

// GetUserByEmail returns nil, nil when no user has that email
func (u *UserProvider) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}
	return user, nil
}

// FindIdentityByEmail is GetUserByEmail with a not found error
func (u *UserProvider) FindIdentityByEmail(ctx context.Context, email string) (*User, error) {
	user, err := u.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// VerifyIdentity will find the user, compare to the password, and return it
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := u.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// burn the same bcrypt work as a real comparison
		u.hasher.Verify(password, u.dummy())
		return nil, ErrInvalidCredentials
	}

	if !u.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (u *UserProvider) dummy() string {
	u.dummyOnce.Do(func() {
		u.dummyHash = RandomPasswordHash()
	})
	return u.dummyHash
}
