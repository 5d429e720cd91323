package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrTenantRequired indicates a request arrived without tenant scoping.
	ErrTenantRequired = errors.New("tenant required")
)
