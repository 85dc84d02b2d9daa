package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// LeaseTTL is how long a refresh lease is honoured before it is treated as
// abandoned by a crashed holder.
const LeaseTTL = 45 * time.Minute

const leaseName = "refresh"

const (
	selectLeaseSQL = `SELECT holder, started_at FROM refresh_lease WHERE name = $1 FOR UPDATE;`
	deleteLeaseSQL = `DELETE FROM refresh_lease WHERE name = $1;`
	insertLeaseSQL = `INSERT INTO refresh_lease (name, holder, started_at) VALUES ($1,$2,$3);`

	releaseLeaseSQL = `DELETE FROM refresh_lease WHERE name = $1 AND holder = $2;`
)

// LeaseHeldError reports a live lease held by another refresh.
type LeaseHeldError struct {
	Holder string
	Age    time.Duration
}

func (e *LeaseHeldError) Error() string {
	return fmt.Sprintf("refresh lease held by %s for %s", e.Holder, e.Age.Round(time.Second))
}

// AcquireLease takes the single-flight refresh lease. A recorded lease older
// than LeaseTTL, or one that cannot be read, is treated as abandoned and
// replaced; a live lease fails immediately with a LeaseHeldError naming the
// holder and its age. The returned release func is safe to defer and only
// removes the caller's own lease.
func (s *Store) AcquireLease(ctx context.Context, holder string) (func(), error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin lease tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		curHolder string
		startedAt time.Time
	)
	scanErr := tx.QueryRow(ctx, selectLeaseSQL, leaseName).Scan(&curHolder, &startedAt)
	switch {
	case scanErr == nil:
		age := time.Since(startedAt)
		if age <= LeaseTTL {
			return nil, &LeaseHeldError{Holder: curHolder, Age: age}
		}
		if _, err := tx.Exec(ctx, deleteLeaseSQL, leaseName); err != nil {
			return nil, fmt.Errorf("reclaim stale lease: %w", err)
		}
	case errors.Is(scanErr, pgx.ErrNoRows):
		// no lease recorded
	default:
		// unreadable lease record counts as abandoned
		if _, err := tx.Exec(ctx, deleteLeaseSQL, leaseName); err != nil {
			return nil, fmt.Errorf("remove unreadable lease: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, insertLeaseSQL, leaseName, holder, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert lease: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit lease: %w", err)
	}

	release := func() {
		ctxRelease, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort; an expired lease is reclaimed by the next cycle anyway.
		_, _ = pool.Exec(ctxRelease, releaseLeaseSQL, leaseName, holder)
	}
	return release, nil
}
