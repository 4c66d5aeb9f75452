package domain

// PaymentStatus is the canonical payment lifecycle vocabulary. Gateway event
// strings are mapped to it at the webhook boundary.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentExpired   PaymentStatus = "expired" // swept pending row; a late capture may still complete it
)

// Terminal reports whether the status may not be overwritten by a stale event.
// Expired is the exception: a late capture means funds actually moved.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentRefunded
}

const (
	RoleUser   = "USER"
	RoleVendor = "VENDOR"
	RoleAdmin  = "ADMIN"
)

const (
	ServiceAdoption = "adoption"
	ServiceMating   = "mating"
	ServiceBoarding = "boarding"
	ServiceOther    = "other"
)

// Gateway webhook event names.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)
