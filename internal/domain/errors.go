package domain

import "errors"

var (
	ErrNetwork          = errors.New("network error")
	ErrParse            = errors.New("parse error")
	ErrEmptyResult      = errors.New("empty result")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidConfig    = errors.New("invalid config")
)

// Kind maps an error to its taxonomy name for logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "NetworkError"
	case errors.Is(err, ErrParse):
		return "ParseError"
	case errors.Is(err, ErrEmptyResult):
		return "EmptyResultError"
	case errors.Is(err, ErrInsufficientData):
		return "InsufficientDataError"
	case errors.Is(err, ErrInvalidConfig):
		return "ConfigError"
	default:
		return "Error"
	}
}
