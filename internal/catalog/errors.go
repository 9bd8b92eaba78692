package catalog

import "errors"

var (
	ErrRemoteUnconfigured = errors.New("remote catalog is not configured")
	ErrNotFound           = errors.New("product not found")
	ErrDuplicate          = errors.New("product already exists")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrUnavailable        = errors.New("remote catalog unavailable")
	ErrBadStatus          = errors.New("remote catalog bad status")
)
