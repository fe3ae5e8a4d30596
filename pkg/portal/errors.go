package portal

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired is returned when the login redirect does not come back in time
	ErrAuthExpired = errors.New("authentication expired")

	// ErrPortalUnavailable is returned when an expected page element never renders
	ErrPortalUnavailable = errors.New("portal unavailable")

	// ErrNoMatchingSession is returned when no booking row matches the session
	ErrNoMatchingSession = errors.New("no matching session")

	// ErrDownloadTimedOut is returned when the click produced no completed download
	ErrDownloadTimedOut = errors.New("download timed out")
)

// Step names the orchestrator stage that failed
type Step string

const (
	StepCookies  Step = "cookies"
	StepLogin    Step = "login"
	StepBookings Step = "bookings"
	StepExtract  Step = "extract"
	StepMatch    Step = "match"
	StepDownload Step = "download"
)

// StepError reports which step failed and what it was waiting for
type StepError struct {
	Step        Step
	Expectation string
	Kind        error
	Err         error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s step: %s", e.Step, e.Expectation)
	if e.Kind != nil {
		msg = fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the classification and the underlying cause
func (e *StepError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func stepError(step Step, kind error, expectation string, err error) *StepError {
	return &StepError{
		Step:        step,
		Expectation: expectation,
		Kind:        kind,
		Err:         err,
	}
}
