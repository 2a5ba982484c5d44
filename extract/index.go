package extract

import (
	"strconv"
	"strings"
)

// TagIndex maps numeric EXIF tag ids to display-ready string values.
type TagIndex map[uint16]string

// Get returns the value for tag. Empty values are reported as absent.
func (idx TagIndex) Get(tag uint16) (string, bool) {

	v, ok := idx[tag]

	if !ok || v == "" {
		return "", false
	}

	return v, true
}

// FormatRational renders a rational the way a person would write it: whole numbers as
// integers, unit fractions (exposure times) as "1/n" and everything else as a decimal.
func FormatRational(num int64, den int64) string {

	switch {
	case den == 0:
		return strconv.FormatInt(num, 10) + "/0"
	case num%den == 0:
		return strconv.FormatInt(num/den, 10)
	case num == 1:
		return "1/" + strconv.FormatInt(den, 10)
	default:
		return strconv.FormatFloat(float64(num)/float64(den), 'f', -1, 64)
	}
}

func joinInts[T uint16 | uint32 | int32 | int](values []T) string {

	parts := make([]string, len(values))

	for i, v := range values {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}

	return strings.Join(parts, " ")
}

func cleanString(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}
