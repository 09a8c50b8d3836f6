package spectral

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is matched by every *ParameterError via errors.Is
var ErrInvalidParameter = errors.New("invalid parameter")

// ParameterError reports a filter bank configuration that cannot be built.
// Param is the config key at fault (e.g. "low_freq", "high_freq").
type ParameterError struct {
	Param string
	Value any
	Msg   string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s input error (%v): %s", e.Param, e.Value, e.Msg)
}

func (e *ParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func paramError(param string, value any, msg string) *ParameterError {
	return &ParameterError{Param: param, Value: value, Msg: msg}
}
