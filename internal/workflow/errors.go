package workflow

import "fmt"

// ConfigurationError reports a structurally invalid workflow declaration.
// It is never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid signer configuration: " + e.Reason
}

// ResolutionError reports that one recipient's workflow could not be materialized
type ResolutionError struct {
	RecipientID int64
	Reason      string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve workflow for employee %d: %s", e.RecipientID, e.Reason)
}
