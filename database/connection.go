package database

import (
	"context"
	"fmt"
	"sync"

	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/mirage-db/mirage/introspect"
	"github.com/mirage-db/mirage/schema"
	"github.com/mirage-db/mirage/utils"
)

// Session wraps one live SurrealDB connection. Migration runs require
// exclusive access to the target database, so a process holds a single
// shared session.
type Session struct {
	db *surrealdb.DB
}

var (
	session     *Session
	sessionOnce sync.Once
	sessionErr  error
)

// Connect returns the singleton session for the configured database,
// authenticating and selecting the namespace/database on first use.
func Connect(ctx context.Context) (*Session, error) {
	sessionOnce.Do(func() {
		cfg, err := utils.LoadConfig()
		if err != nil {
			sessionErr = err
			return
		}

		db, err := surrealdb.FromEndpointURLString(ctx, cfg.Endpoint)
		if err != nil {
			sessionErr = fmt.Errorf("connect to %s: %v", cfg.Endpoint, err)
			return
		}

		if cfg.Username != "" {
			if _, err := db.SignIn(ctx, surrealdb.Auth{
				Username: cfg.Username,
				Password: cfg.Password,
			}); err != nil {
				sessionErr = fmt.Errorf("sign in as %s: %v", cfg.Username, err)
				return
			}
		}

		if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
			sessionErr = fmt.Errorf("use %s/%s: %v", cfg.Namespace, cfg.Database, err)
			return
		}

		session = &Session{db: db}
	})

	return session, sessionErr
}

// Execute runs one schema statement against the live connection.
func (s *Session) Execute(ctx context.Context, stmt string) error {
	if _, err := surrealdb.Query[any](ctx, s.db, stmt, nil); err != nil {
		return fmt.Errorf("execute %q: %v", stmt, err)
	}
	return nil
}

// Describe introspects the live database into a schema snapshot.
func (s *Session) Describe(ctx context.Context) (*schema.SchemaSnapshot, error) {
	return introspect.Snapshot(ctx, s.db)
}

// Ping verifies the connection is alive.
func (s *Session) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[int](ctx, s.db, "RETURN 1", nil); err != nil {
		return fmt.Errorf("ping: %v", err)
	}
	return nil
}

// Close tears down the singleton connection on shutdown.
func Close(ctx context.Context) {
	if session != nil {
		_ = session.db.Close(ctx)
	}
}
