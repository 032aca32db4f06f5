package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Caches, stores and clients return
// these (optionally wrapped) so services can translate them into domain
// errors or decide to carry on without the dependency.
//
// - ErrNotFound: key or entity does not exist
// - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
