package validator

import (
	apperrors "github.com/meetnearby/meetnearby/pkg/errors"
)

type Validator interface {
	ValidateCoordinates(lat, lng float64) error
	ValidateRadius(radiusKm float64) error
}

type validator struct {
	minRadiusKm float64
	maxRadiusKm float64
}

func NewValidator(minRadiusKm, maxRadiusKm float64) Validator {
	return &validator{
		minRadiusKm: minRadiusKm,
		maxRadiusKm: maxRadiusKm,
	}
}

func (v *validator) ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return apperrors.ErrInvalidLatitude
	}

	if lng < -180 || lng > 180 {
		return apperrors.ErrInvalidLongitude
	}

	return nil
}

// ValidateRadius enforces the UI range. The nearby filter itself accepts
// any positive value; this bound applies only at the API boundary.
func (v *validator) ValidateRadius(radiusKm float64) error {
	if radiusKm < v.minRadiusKm || radiusKm > v.maxRadiusKm {
		return apperrors.ErrInvalidRadius
	}
	return nil
}
