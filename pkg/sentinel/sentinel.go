package sentinel

import "errors"

// Sentinel errors for the registry failure taxonomy. The repository client
// returns these (wrapped with operation context) so the controller can
// translate them into user-facing status without inspecting transport detail.
//
// These represent factual outcomes, not programming errors:
// - ErrValidation: input rejected locally, before any request was issued
// - ErrNotFound: lookup or update target absent in the external store
// - ErrConflict: duplicate identity on create
// - ErrRejected: the server refused the payload shape
// - ErrUnavailable: network-level or unclassified non-2xx failure
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrRejected    = errors.New("rejected")
	ErrUnavailable = errors.New("unavailable")
)
