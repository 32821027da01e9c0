package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Stable advisory lock keys, one per job type. These coordinate at-most-one
// execution of each job across all worker processes sharing the database.
const (
	LockKeyRuleCheck    int64 = 0x6465616C_0001
	LockKeyPriceDrop    int64 = 0x6465616C_0002
	LockKeyDailyDigest  int64 = 0x6465616C_0003
	LockKeyWeeklyDigest int64 = 0x6465616C_0004
)

type jobLockRepository struct {
	db *sqlx.DB
}

// NewJobLockRepository creates an advisory-lock repository backed by
// session-scoped Postgres locks.
func NewJobLockRepository(db *sqlx.DB) JobLockRepositoryInterface {
	return &jobLockRepository{db: db}
}

// TryAcquire attempts to take the advisory lock without blocking. The lock is
// session-scoped: it is pinned to a dedicated connection and Postgres frees
// it automatically if the process dies, which is the crash-safe timeout the
// scheduler relies on. The returned release func must be called exactly once
// when acquired is true.
func (r *jobLockRepository) TryAcquire(ctx context.Context, key int64) (func(), bool, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool
	if err := conn.GetContext(ctx, &acquired, `SELECT pg_try_advisory_lock($1)`, key); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func() {
		// Unlock on a background context: release must work even when the
		// tick's context is already cancelled.
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		_ = conn.Close()
	}
	return release, true, nil
}
