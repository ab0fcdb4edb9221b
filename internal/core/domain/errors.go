package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service-level failures. The HTTP layer maps
// kinds onto status codes; everything else matches on the kind, never
// on error strings.
type ErrorKind string

const (
	KindNotAuthorized      ErrorKind = "not_authorized"
	KindFeatureDisabled    ErrorKind = "feature_disabled"
	KindQuotaExceeded      ErrorKind = "quota_exceeded"
	KindInvalidInput       ErrorKind = "invalid_input"
	KindUpstreamInvocation ErrorKind = "upstream_invocation_failure"
)

// ServiceError is the common failure type for guarded operations.
// It carries the action that was attempted so callers can log and
// report which operation was denied.
type ServiceError struct {
	Kind   ErrorKind
	Action string
	msg    string
}

func (e *ServiceError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Action, e.msg)
}

// NotAuthorized reports a permission or association failure for action.
func NotAuthorized(action, msg string) error {
	return &ServiceError{Kind: KindNotAuthorized, Action: action, msg: msg}
}

// FeatureDisabled reports that the action is not currently enabled.
func FeatureDisabled(action string) error {
	return &ServiceError{Kind: KindFeatureDisabled, Action: action, msg: "service is not enabled"}
}

// QuotaExceeded reports an exhausted allotment for action.
func QuotaExceeded(action string) error {
	return &ServiceError{Kind: KindQuotaExceeded, Action: action, msg: "quota exhausted"}
}

// InvalidInput reports a rejected payload.
func InvalidInput(action, msg string) error {
	return &ServiceError{Kind: KindInvalidInput, Action: action, msg: msg}
}

// UpstreamInvocationError is the single opaque error reported for any
// model-invocation failure. The underlying cause is logged at the
// service boundary and deliberately not carried here.
func UpstreamInvocationError(action string) error {
	return &ServiceError{Kind: KindUpstreamInvocation, Action: action, msg: "failed to invoke chat model"}
}

// KindOf extracts the ErrorKind from err, or "" if err is not a
// ServiceError.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
