package gps

import (
	"errors"
)

// Status describes the outcome of looking for GPS data in an image. Every status other
// than StatusPresent produces the same "no GPS" record; the distinction is kept for
// diagnostics.
type Status int

const (
	StatusMissing Status = iota
	StatusPresent
	StatusMalformed
	StatusUnreadable
)

func (s Status) String() string {

	switch s {
	case StatusPresent:
		return "present"
	case StatusMalformed:
		return "malformed"
	case StatusUnreadable:
		return "unreadable"
	default:
		return "missing"
	}
}

// StatusForError maps an error returned by TagSet.Coordinate to a Status.
func StatusForError(err error) Status {

	switch {
	case err == nil:
		return StatusPresent
	case errors.Is(err, ErrMalformedTag):
		return StatusMalformed
	case errors.Is(err, ErrNoGPSData):
		return StatusMissing
	default:
		return StatusUnreadable
	}
}
