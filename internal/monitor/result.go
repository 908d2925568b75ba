package monitor

import "time"

// Result is one observation of an endpoint made by the Watcher
type Result struct {
	EndpointName  string
	Status        Status
	FailureReason string
	Latency       time.Duration
	Error         error
	CheckedAt     time.Time
}
