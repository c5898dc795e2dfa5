package experiment

import "errors"

var (
	// ErrValidation is returned when inputs do not describe a valid variation
	ErrValidation = errors.New("invalid variation")
	// ErrDivision is returned when a conversion rate is requested for an empty variation
	ErrDivision = errors.New("division by zero")
	// ErrState is returned when an operation needs data the variation does not hold
	ErrState = errors.New("variation has no data")
	// ErrNilVariation is returned when a nil variation is passed where one is required
	ErrNilVariation = errors.New("variation required")
	// ErrParse is returned when an exchange-format payload cannot be decoded
	ErrParse = errors.New("cannot parse collection")
)
