package cron

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Advisory lock keys, one fixed id per scheduled workload so separate
// deployments never collide on job types.
const (
	AdvisoryKeyScheduledRun      int64 = 743001
	AdvisoryKeyPendingGrantSweep int64 = 743002
	AdvisoryKeyRewardRollup      int64 = 743003
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// WithLock wraps a job so each run holds its own lock. When another
// instance holds it, the run is a no-op and the cycle moves on.
func WithLock(job Job, lock Lock) Job {
	return &lockedJob{job: job, lock: lock}
}

type lockedJob struct {
	job  Job
	lock Lock
}

func (j *lockedJob) Name() string { return j.job.Name() }

func (j *lockedJob) Run(ctx context.Context) error {
	ok, err := j.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", j.job.Name(), err)
	}
	if !ok {
		return nil
	}
	defer func() { _ = j.lock.Release(ctx) }()
	return j.job.Run(ctx)
}

// AdvisoryLock implements Lock on top of Postgres session advisory
// locks. At most one instance holds a given key across the fleet,
// without a separate coordination service. The lock pins a pooled
// connection for its lifetime because advisory locks are
// session-scoped.
type AdvisoryLock struct {
	db  *gorm.DB
	key int64

	conn *sql.Conn
}

// NewAdvisoryLock builds an advisory lock for the given key.
func NewAdvisoryLock(db *gorm.DB, key int64) (*AdvisoryLock, error) {
	if db == nil {
		return nil, errors.New("db required for advisory lock")
	}
	if key == 0 {
		return nil, errors.New("advisory lock key is required")
	}
	return &AdvisoryLock{db: db, key: key}, nil
}

// Acquire attempts a non-blocking pg_try_advisory_lock.
func (l *AdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock connection: %w", err)
	}
	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.key).Scan(&locked); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("advisory lock acquire: %w", err)
	}
	if !locked {
		_ = conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks on the same connection and returns it to the pool.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		_ = l.conn.Close()
		l.conn = nil
	}()
	var unlocked bool
	if err := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", l.key).Scan(&unlocked); err != nil {
		return fmt.Errorf("advisory lock release: %w", err)
	}
	if !unlocked {
		return errors.New("advisory lock was not held at release")
	}
	return nil
}
