package idempotency

import "context"

// Store records which guarded operations have already run. Exists errors
// must be propagated, never guessed: the orchestrator fails closed and
// skips the charge when it cannot prove the operation has not run.
type Store interface {
	// Exists reports whether the key has been recorded.
	Exists(ctx context.Context, key string) (bool, error)

	// Record persists the key with the payment it guards. Recording an
	// existing key returns an already-exists error.
	Record(ctx context.Context, key string, paymentID string) error
}
