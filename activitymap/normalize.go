package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	auth "github.com/leadnest/leadnest-auth"
)

const (
	// MetadataKeyOutcome is "success" or "failure" for login events
	MetadataKeyOutcome = "outcome"
	// MetadataKeyEmailDomain keeps the domain of a redacted email
	MetadataKeyEmailDomain = "email_domain"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
	redacted          = "[redacted]"
)

// sensitive metadata keys are replaced before a record leaves the process
var sensitiveKeys = map[string]struct{}{
	"password":        {},
	"hashed_password": {},
	"password_hash":   {},
	"token":           {},
	"access_token":    {},
	"secret":          {},
}

// Normalized is the flat activity shape shipped to logs and audit stores
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	redactEmails  bool
	now           func() time.Time
}

// Normalize converts an auth.ActivityEvent into a Normalized record
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)
	actorID := userID
	if actorID == "" {
		actorID = options.actorFallback
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event, options.redactEmails),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback is the actor used when the event has no user id
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			opts.actorFallback = actorID
		}
	}
}

// WithEmailRedaction replaces the email metadata with its domain
func WithEmailRedaction(enabled bool) Option {
	return func(opts *normalizeOptions) {
		opts.redactEmails = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// Logger is the sink target, satisfied by auth.Logger
type Logger interface {
	Info(msg string, args ...any)
}

// LogSink returns an ActivitySink writing normalized records to logger
func LogSink(logger Logger, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		record := Normalize(event, opts...)
		logger.Info("activity",
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"channel", record.Channel,
			"occurred_at", record.OccurredAt.Format(time.RFC3339),
			"metadata", print.MaybePrettyJSON(record.Metadata),
		)
		return nil
	})
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func normalizeMetadata(event auth.ActivityEvent, redactEmails bool) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+1)
	for key, value := range event.Metadata {
		if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
			metadata[key] = redacted
			continue
		}
		metadata[key] = value
	}

	if email, ok := metadata["email"].(string); ok && redactEmails {
		metadata["email"] = redacted
		if at := strings.LastIndex(email, "@"); at >= 0 {
			metadata[MetadataKeyEmailDomain] = email[at+1:]
		}
	}

	switch event.EventType {
	case auth.ActivityEventLoginSuccess:
		metadata[MetadataKeyOutcome] = "success"
	case auth.ActivityEventLoginFailure:
		metadata[MetadataKeyOutcome] = "failure"
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
