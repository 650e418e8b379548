package types

// PaymentStatus is the final state of a charge attempt that reached the
// gateway. Payment records are append-only and never mutated.
type PaymentStatus string

const (
	PaymentStatusDone   PaymentStatus = "done"
	PaymentStatusFailed PaymentStatus = "failed"
)

// PaymentType records what kind of billing event produced the charge.
type PaymentType string

const (
	PaymentTypeAuto         PaymentType = "auto"
	PaymentTypeRetry        PaymentType = "retry"
	PaymentTypeTrialConvert PaymentType = "trial_convert"
)
