package gps

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidReference is returned when a hemisphere reference is not one of N, S, E or W.
var ErrInvalidReference = errors.New("Invalid hemisphere reference")

// Axis identifies which half of a coordinate pair a DMS value encodes.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

// ToDecimal converts a degrees, minutes, seconds triple and a hemisphere reference
// in to signed decimal degrees. Southern and western references yield negative values.
func ToDecimal(dms [3]float64, ref string) (float64, error) {

	decimal := dms[0] + (dms[1] / 60.0) + (dms[2] / 3600.0)

	switch ref {
	case "N", "E":
		return decimal, nil
	case "S", "W":
		return -decimal, nil
	default:
		return 0.0, fmt.Errorf("%w '%s'", ErrInvalidReference, ref)
	}
}

// FromDecimal converts signed decimal degrees in to a degrees, minutes, seconds triple
// and the hemisphere reference for axis.
func FromDecimal(decimal float64, axis Axis) ([3]float64, string) {

	ref := "N"

	if axis == Longitude {
		ref = "E"
	}

	if decimal < 0 {

		switch axis {
		case Longitude:
			ref = "W"
		default:
			ref = "S"
		}

		decimal = -decimal
	}

	deg := math.Floor(decimal)
	rem := (decimal - deg) * 60.0
	min := math.Floor(rem)
	sec := (rem - min) * 60.0

	return [3]float64{deg, min, sec}, ref
}
