package profile

import "errors"

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrInheritanceCycle = errors.New("inheritance cycle detected")
	ErrConfig           = errors.New("invalid profile entry")
	ErrUnknownFlag      = errors.New("unknown flag")
)
