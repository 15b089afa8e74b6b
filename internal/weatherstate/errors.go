package weatherstate

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	UnknownLocation ErrorKind = iota + 1
	GeocodingFailure
	WeatherFetchFailure
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownLocation:
		return "unknown location"
	case GeocodingFailure:
		return "geocoding failure"
	case WeatherFetchFailure:
		return "weather fetch failure"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ErrUnknownCity is shown to users verbatim.
var ErrUnknownCity = errors.New("Unknown city")

// Error is the only error type an update can end with. Every failure site
// builds one with its own Kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == UnknownLocation {
		return fmt.Sprintf("Error while updating weather: %v", e.Err)
	}
	return fmt.Sprintf("Error while updating weather: %v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
