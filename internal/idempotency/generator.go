package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/stackbill/stackbill/internal/types"
)

// Scope names the billing operation a key de-duplicates. The set is closed:
// only operations that move money are guarded.
type Scope string

const (
	ScopeTrialConvert Scope = "TRIAL_CONVERT"
	ScopeAutoBilling  Scope = "AUTO_BILLING"
)

// GenerateKey derives a deterministic key from a scope and parameters.
// Params are sorted so the same inputs always produce the same key, built as
// scope:key1=value1:key2=value2:... and then hashed.
func GenerateKey(scope Scope, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%s", k, params[k]))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// DailyChargeKey is the key for one tenant's charge under a scope on one
// billing day. The day rolls the key forward deliberately: one charge per
// cycle per day-boundary evaluation, no cross-day de-duplication.
func DailyChargeKey(scope Scope, tenantID string, day types.BillingDay) string {
	return GenerateKey(scope, map[string]string{
		"tenant_id": tenantID,
		"date":      day.String(),
	})
}
