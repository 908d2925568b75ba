package monitor

import "time"

const (
	// DefaultPollInterval is the delay between two status fetches
	DefaultPollInterval = 5 * time.Second
	// DefaultTimeout is how long AwaitReady callers wait by default
	DefaultTimeout = 15 * time.Minute
)

// Status is an endpoint status as reported by the control plane
type Status string

const (
	StatusCreating       Status = "Creating"
	StatusUpdating       Status = "Updating"
	StatusSystemUpdating Status = "SystemUpdating"
	StatusRollingBack    Status = "RollingBack"
	StatusDeleting       Status = "Deleting"
	StatusInService      Status = "InService"
	StatusOutOfService   Status = "OutOfService"
	StatusFailed         Status = "Failed"

	// StatusChecking and StatusUnknown are local to the dashboard and never
	// come from the control plane.
	StatusChecking Status = "Checking"
	StatusUnknown  Status = "Unknown"
)

// Terminal reports whether no further transition is expected
func (s Status) Terminal() bool {
	return s == StatusInService || s == StatusFailed
}

// Category groups statuses for display
type Category int

const (
	CategoryPending Category = iota
	CategoryReady
	CategoryFailed
)

// Category returns the display group of a status
func (s Status) Category() Category {
	switch s {
	case StatusInService:
		return CategoryReady
	case StatusFailed, StatusOutOfService, StatusUnknown:
		return CategoryFailed
	default:
		return CategoryPending
	}
}

// Outcome is the result of one AwaitReady call
type Outcome string

const (
	OutcomeSuccess  Outcome = "Success"
	OutcomeFailed   Outcome = "Failed"
	OutcomeTimedOut Outcome = "TimedOut"
)

// OK reports whether the outcome is a success
func (o Outcome) OK() bool {
	return o == OutcomeSuccess
}
