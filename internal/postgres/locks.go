package postgres

import (
	"context"

	ierr "github.com/stackbill/stackbill/internal/errors"
)

// TryAcquireRunLock takes a session-scoped advisory lock keyed by name so
// overlapping daily-run invocations skip instead of double-scanning. The
// key is a deterministic string that Postgres hashes internally.
//
// Returns ok=false without error when another session holds the lock. On
// ok=true the caller must invoke release, which unlocks and returns the
// pinned connection to the pool.
func (c *Client) TryAcquireRunLock(ctx context.Context, name string) (release func(), ok bool, err error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Failed to pin connection for advisory lock").
			Mark(ierr.ErrDatabase)
	}

	row := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, name)
	if err := row.Scan(&ok); err != nil {
		conn.Close()
		return nil, false, ierr.WithError(err).
			WithHint("Failed to acquire advisory lock").
			WithReportableDetails(map[string]interface{}{"lock": name}).
			Mark(ierr.ErrDatabase)
	}

	if !ok {
		conn.Close()
		return nil, false, nil
	}

	release = func() {
		// Unlock on the same pinned session; best effort, the lock dies
		// with the session anyway.
		if _, err := conn.ExecContext(context.Background(),
			`SELECT pg_advisory_unlock(hashtext($1))`, name); err != nil {
			c.log.Errorw("failed to release advisory lock", "lock", name, "error", err)
		}
		conn.Close()
	}
	return release, true, nil
}
