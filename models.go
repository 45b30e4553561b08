package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubscriptionStatus is the billing state of an account
type SubscriptionStatus = string

const (
	// SubscriptionTrial new accounts start here
	SubscriptionTrial SubscriptionStatus = "trial"
	// SubscriptionActive paying account
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionCancelled account cancelled its plan
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// DefaultTrialPeriod is added to the creation time to compute TrialEndsAt
const DefaultTrialPeriod = 14 * 24 * time.Hour

// User is the user model
type User struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID          `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email              string             `bun:"email,notnull,unique" json:"email"`
	PasswordHash       string             `bun:"hashed_password,notnull" json:"-"`
	IsActive           bool               `bun:"is_active,notnull" json:"is_active"`
	IsAdmin            bool               `bun:"is_admin,notnull" json:"is_admin"`
	SubscriptionStatus SubscriptionStatus `bun:"subscription_status,notnull" json:"subscription_status"`
	StripeCustomerID   string             `bun:"stripe_customer_id" json:"-"`
	TrialEndsAt        *time.Time         `bun:"trial_ends_at,nullzero" json:"trial_ends_at"`
	CreatedAt          *time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// IsValidSubscriptionStatus reports whether status is one of the known values
func IsValidSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionTrial, SubscriptionActive, SubscriptionCancelled:
		return true
	}
	return false
}

// TrialDaysLeft returns the whole days remaining in the trial, or zero.
func (u *User) TrialDaysLeft(now time.Time) int {
	if u == nil || u.TrialEndsAt == nil || u.SubscriptionStatus != SubscriptionTrial {
		return 0
	}
	left := u.TrialEndsAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left.Hours() / 24)
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUserDefaults(record *User, trialPeriod time.Duration, now time.Time) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = NormalizeEmail(record.Email)

	if record.SubscriptionStatus == "" {
		record.SubscriptionStatus = SubscriptionTrial
	}

	if record.CreatedAt == nil {
		created := now
		record.CreatedAt = &created
	}

	if record.TrialEndsAt == nil && trialPeriod > 0 {
		ends := record.CreatedAt.Add(trialPeriod)
		record.TrialEndsAt = &ends
	}
}
