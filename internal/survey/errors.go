package survey

import "fmt"

// ConfigurationError is a fatal input problem caught before any remote
// mutation, such as a score domain that would divide by zero.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// PartialBuildError means a multi-step remote construction failed partway.
// The partially built survey is left on the platform for manual inspection;
// nothing is rolled back.
type PartialBuildError struct {
	SurveyID string
	Step     string
	Err      error
}

func (e *PartialBuildError) Error() string {
	return fmt.Sprintf("survey build failed at %s: %v; partially built survey %s left on the platform", e.Step, e.Err, e.SurveyID)
}

func (e *PartialBuildError) Unwrap() error { return e.Err }
