package testsupport

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"minerva/internal/adapters/postgres"
)

// NewTestDB opens a connection pool for integration tests and closes it on
// cleanup. Tests are skipped when the POSTGRES_* variables are unset.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	client, err := postgres.NewClient(LoadPostgresConfigFromEnv(t))
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client.DB()
}

// NewTestTx begins a transaction on a fresh pool and guarantees it is rolled
// back when the test ends, so writes never leak between runs. The returned
// rollback func is idempotent; tests that need to observe post-rollback state
// can call it early.
func NewTestTx(t *testing.T) (*sqlx.Tx, func()) {
	t.Helper()

	db := NewTestDB(t)
	tx, err := db.BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin transaction: %v", err)
	}

	var once sync.Once
	rollback := func() {
		once.Do(func() {
			_ = tx.Rollback()
		})
	}
	t.Cleanup(rollback)

	return tx, rollback
}
