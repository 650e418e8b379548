package types

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes keep ids self-describing when they show up in logs and payloads.
const (
	UUID_PREFIX_SUBSCRIPTION  = "subs"
	UUID_PREFIX_PAYMENT       = "pay"
	UUID_PREFIX_HISTORY       = "hist"
	UUID_PREFIX_WEBHOOK_EVENT = "evt"
	UUID_PREFIX_BILLING_RUN   = "run"
	UUID_PREFIX_ORDER         = "ord"
)

// GenerateUUID returns a lowercase ULID.
func GenerateUUID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String())
}

// GenerateUUIDWithPrefix returns a prefixed ULID, e.g. "subs_01h...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
