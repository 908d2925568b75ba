package deploy

import (
	"time"
)

const (
	maxModelNameLength   = 63
	configPrefixLength   = 45
	endpointConfigSuffix = "-ep-config"
	timestampLayout      = "2006-01-02-15-04"
)

// ModelName returns the versioned name of a model built at t
func ModelName(base string, t time.Time) string {
	return truncate(base+"-"+t.UTC().Format(timestampLayout), maxModelNameLength)
}

// EndpointConfigName returns the endpoint configuration name for a model
func EndpointConfigName(modelName string) string {
	return truncate(modelName, configPrefixLength) + endpointConfigSuffix
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
