package params

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the sentinel every configuration failure unwraps to.
// Configuration errors are fatal at startup: no scenario runs.
var ErrConfiguration = errors.New("configuration error")

// UnknownParameterError reports an override key with no counterpart in the
// default parameters.
type UnknownParameterError struct {
	Path string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q: not present in default_parameters", e.Path)
}

func (e *UnknownParameterError) Unwrap() error { return ErrConfiguration }

// MalformedOverrideError reports an override whose shape does not match the
// default (a mapping where a value is expected, or the reverse).
type MalformedOverrideError struct {
	Path   string
	Reason string
}

func (e *MalformedOverrideError) Error() string {
	return fmt.Sprintf("malformed override at %q: %s", e.Path, e.Reason)
}

func (e *MalformedOverrideError) Unwrap() error { return ErrConfiguration }

// MissingParameterError reports a parameter the simulation needs that the
// resolved tree does not provide.
type MissingParameterError struct {
	Path string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %q", e.Path)
}

func (e *MissingParameterError) Unwrap() error { return ErrConfiguration }

// InvalidParameterError reports a parameter value outside its allowed range.
type InvalidParameterError struct {
	Path   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q = %v: %s", e.Path, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error { return ErrConfiguration }
