package ride

import "errors"

// Kind classifies a rejection so callers can branch without parsing prose.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnauthorized
	KindConflict
	// KindUnavailable marks expected, retriable business outcomes (no driver
	// right now, parties not yet in position); these are not faults.
	KindUnavailable
	// KindDependency marks an external collaborator failure; local state may
	// have been left untouched on purpose so the caller can retry.
	KindDependency
	KindInternal
)

// Rejection is the typed non-success outcome of a lifecycle operation. Code is
// a stable machine-readable reason.
type Rejection struct {
	Kind  Kind
	Code  string
	cause error
}

func (r *Rejection) Error() string {
	if r.cause != nil {
		return r.Code + ": " + r.cause.Error()
	}
	return r.Code
}

func (r *Rejection) Unwrap() error { return r.cause }

var (
	ErrRiderNotFound          = &Rejection{Kind: KindNotFound, Code: "rider_not_found"}
	ErrDriverNotFound         = &Rejection{Kind: KindNotFound, Code: "driver_not_found"}
	ErrRequestNotFound        = &Rejection{Kind: KindNotFound, Code: "request_not_found"}
	ErrTripNotFound           = &Rejection{Kind: KindNotFound, Code: "trip_not_found"}
	ErrUnauthorizedAction     = &Rejection{Kind: KindUnauthorized, Code: "unauthorized_action"}
	ErrUnauthorizedForRequest = &Rejection{Kind: KindUnauthorized, Code: "unauthorized_for_request"}
	ErrRequestOrTripOngoing   = &Rejection{Kind: KindConflict, Code: "request_or_trip_ongoing"}
	ErrNoDriverAvailable      = &Rejection{Kind: KindUnavailable, Code: "no_driver_available"}
	ErrNotAtPickup            = &Rejection{Kind: KindUnavailable, Code: "users_not_in_start_location"}
	ErrNotAtDropoff           = &Rejection{Kind: KindUnavailable, Code: "users_not_in_final_location"}
)

func dependencyFailure(cause error) error {
	return &Rejection{Kind: KindDependency, Code: "billing_unavailable", cause: cause}
}

func internalFailure(cause error) error {
	return &Rejection{Kind: KindInternal, Code: "internal_error", cause: cause}
}

// KindOf extracts the rejection kind, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	return KindInternal
}

// CodeOf extracts the stable reason code, or "internal_error".
func CodeOf(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return "internal_error"
}
