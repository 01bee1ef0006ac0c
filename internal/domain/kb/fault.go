package kb

import "errors"

// FaultKind classifies an upstream knowledge-base fault for envelope mapping.
type FaultKind int

const (
	// FaultUnknown is the catch-all for unclassified upstream failures.
	FaultUnknown FaultKind = iota

	// FaultInvalid indicates the upstream rejected the request as malformed.
	FaultInvalid

	// FaultNotFound indicates the knowledge base or resource does not exist.
	FaultNotFound

	// FaultThrottled indicates an upstream rate limit; the caller should
	// back off and retry.
	FaultThrottled
)

// String returns the fault kind label used in logs.
func (k FaultKind) String() string {
	switch k {
	case FaultInvalid:
		return "invalid"
	case FaultNotFound:
		return "not_found"
	case FaultThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Fault wraps an upstream error with its classification. Adapters classify
// at the boundary; handlers only look at Kind.
type Fault struct {
	Kind    FaultKind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Err != nil {
		return f.Err.Error()
	}
	return "knowledge base fault"
}

func (f *Fault) Unwrap() error { return f.Err }

// KindOf extracts the fault classification from an error chain.
// Unwrapped errors classify as FaultUnknown.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return FaultUnknown
}
