package app

import (
	"errors"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
)

var (
	ErrNotFound = ports.ErrNotFound
	ErrConflict = ports.ErrConflict
)

// CodedError porte un code stable, renvoyé tel quel par l'API HTTP.
//
// Exemples de codes: invalid_url, invalid_interval, invalid_message, capture_failed.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

func invalid(code, message string, err error) error {
	return &CodedError{Code: code, Message: message, Err: err}
}

// IsValidation indique une erreur d'entrée utilisateur (HTTP 400).
func IsValidation(err error) bool {
	var coded *CodedError
	return errors.As(err, &coded)
}
