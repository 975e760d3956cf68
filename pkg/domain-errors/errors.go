// Package derrors provides coded domain errors. Services return these so
// transport layers can translate failures into responses without string
// matching, and callers can branch on codes with HasCode.
//
// Stores do not use this package directly; they return pkg/platform/sentinel
// errors and services translate them into coded errors here.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Codes are part of the external contract:
// they appear verbatim in HTTP error envelopes.
type Code string

const (
	// Generic codes.
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Scheduler-specific codes.
	CodeInvalidParameter   Code = "invalid_parameter"
	CodeCampaignExpired    Code = "campaign_expired"
	CodeCapacityExceeded   Code = "capacity_exceeded"
	CodeNoSuchAssignment   Code = "no_such_assignment"
	CodeDuplicateJudgement Code = "duplicate_judgement"
	CodeStorageUnavailable Code = "storage_unavailable"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is / errors.Unwrap.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is delegates to the standard errors.Is, re-exported so callers using this
// package for error handling do not need a second import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
