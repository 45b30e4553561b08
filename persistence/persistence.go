package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// ErrUnsupportedDSN the DSN scheme does not map to a known driver
var ErrUnsupportedDSN = errors.New("unsupported database url", errors.CategoryBadInput).
	WithTextCode("UNSUPPORTED_DSN")

type Options struct {
	Debug           bool
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

type Option func(*Options)

// WithDebug logs every query through bundebug
func WithDebug(debug bool) Option {
	return func(o *Options) {
		o.Debug = debug
	}
}

func WithMaxOpenConns(n int) Option {
	return func(o *Options) {
		o.MaxOpenConns = n
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *Options) {
		o.ConnMaxLifetime = d
	}
}

func WithPingTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PingTimeout = d
	}
}

// Target is the driver, source and dialect resolved from a DSN
type Target struct {
	Name    string
	Driver  string
	Source  string
	Dialect schema.Dialect
}

// Resolve picks the driver for dsn. postgres:// and postgresql:// use
// lib/pq; sqlite:, file: and :memory: use the sqlite shim.
func Resolve(dsn string) (Target, error) {
	dsn = strings.TrimSpace(dsn)

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Target{
			Name:    DialectPostgres,
			Driver:  "postgres",
			Source:  dsn,
			Dialect: pgdialect.New(),
		}, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqliteTarget(strings.TrimPrefix(dsn, "sqlite://")), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqliteTarget(strings.TrimPrefix(dsn, "sqlite:")), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return sqliteTarget(dsn), nil
	}

	return Target{}, ErrUnsupportedDSN.Clone().WithMetadata(map[string]any{
		"scheme": scheme(dsn),
	})
}

func sqliteTarget(source string) Target {
	return Target{
		Name:    DialectSQLite,
		Driver:  sqliteshim.ShimName,
		Source:  source,
		Dialect: sqlitedialect.New(),
	}
}

func scheme(dsn string) string {
	if i := strings.Index(dsn, ":"); i > 0 {
		return dsn[:i]
	}
	return ""
}

// Open connects to dsn and checks the connection before returning
func Open(ctx context.Context, dsn string, opts ...Option) (*bun.DB, error) {
	o := Options{PingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	target, err := Resolve(dsn)
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(target.Driver, target.Source)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open database").
			WithMetadata(map[string]any{"dialect": target.Name})
	}

	if target.Name == DialectSQLite && strings.Contains(target.Source, ":memory:") {
		// every connection to a private in-memory database is a new database
		sqldb.SetMaxOpenConns(1)
	} else if o.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(o.MaxOpenConns)
	}

	if o.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(o.ConnMaxLifetime)
	}

	db := bun.NewDB(sqldb, target.Dialect)

	if o.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "database is unreachable").
			WithMetadata(map[string]any{"dialect": target.Name})
	}

	return db, nil
}
