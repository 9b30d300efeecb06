package qerr

import (
	"errors"
	"fmt"
)

// Code represents a stable error category that callers can switch on.
type Code string

const (
	CodeUnknown           Code = "unknown"
	CodeValidation        Code = "validation"
	CodeInvalidEnv        Code = "invalid_env"
	CodeInvalidMount      Code = "invalid_mount"
	CodeInvalidSecret     Code = "invalid_secret"
	CodeNotFound          Code = "not_found"
	CodePackaging         Code = "packaging"
	CodeCorruptArtifact   Code = "corrupt_artifact"
	CodeDependency        Code = "dependency"
	CodeDependencyInstall Code = "dependency_install"
	CodeNameConflict      Code = "name_conflict"
	CodePortUnavailable   Code = "port_unavailable"
	CodeNetwork           Code = "network"
	CodeAuth              Code = "auth"
	CodeExpiredToken      Code = "expired_token"
	CodeRemoteRejected    Code = "remote_rejected"
)

// Error is a simple value type that carries a Code plus the underlying error.
type Error struct {
	Code Code
	err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.err == nil {
		return string(e.Code)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// New wraps an error with the provided code. If err is nil a nil is returned.
func New(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, err: err}
}

// Newf builds a coded error from a format string. %w is honoured.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, err: fmt.Errorf(format, args...)}
}

// CodeOf returns the outermost code found in the chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode helps callers compare codes without type assertions. Wrapped coded
// errors are found through the whole chain.
func IsCode(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.err
	}
	return false
}

// IsValidation reports whether err is bad user input. Malformed env, mount
// and secret strings are validation failures too.
func IsValidation(err error) bool {
	return IsCode(err, CodeValidation) ||
		IsCode(err, CodeInvalidEnv) ||
		IsCode(err, CodeInvalidMount) ||
		IsCode(err, CodeInvalidSecret)
}
