package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stackbill/stackbill/internal/types"
)

func TestGenerateKey(t *testing.T) {
	t.Run("is deterministic regardless of param order", func(t *testing.T) {
		a := GenerateKey(ScopeAutoBilling, map[string]string{"tenant_id": "tnt_1", "date": "2024-03-01"})
		b := GenerateKey(ScopeAutoBilling, map[string]string{"date": "2024-03-01", "tenant_id": "tnt_1"})
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("scope separates otherwise identical params", func(t *testing.T) {
		params := map[string]string{"tenant_id": "tnt_1", "date": "2024-03-01"}
		assert.NotEqual(t,
			GenerateKey(ScopeAutoBilling, params),
			GenerateKey(ScopeTrialConvert, params))
	})

	t.Run("any param change produces a different key", func(t *testing.T) {
		base := GenerateKey(ScopeAutoBilling, map[string]string{"tenant_id": "tnt_1", "date": "2024-03-01"})
		assert.NotEqual(t, base,
			GenerateKey(ScopeAutoBilling, map[string]string{"tenant_id": "tnt_2", "date": "2024-03-01"}))
		assert.NotEqual(t, base,
			GenerateKey(ScopeAutoBilling, map[string]string{"tenant_id": "tnt_1", "date": "2024-03-02"}))
	})
}

func TestDailyChargeKey(t *testing.T) {
	day := types.NewBillingDay(2024, time.March, 1)

	t.Run("same tenant and day collide by design", func(t *testing.T) {
		assert.Equal(t,
			DailyChargeKey(ScopeAutoBilling, "tnt_1", day),
			DailyChargeKey(ScopeAutoBilling, "tnt_1", day))
	})

	t.Run("the key rolls forward with the day", func(t *testing.T) {
		assert.NotEqual(t,
			DailyChargeKey(ScopeAutoBilling, "tnt_1", day),
			DailyChargeKey(ScopeAutoBilling, "tnt_1", day.AddDays(1)))
	})
}
