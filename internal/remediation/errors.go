// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package remediation

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a remediation failure
type ErrorType int

const (
	// ErrorFileSystem indicates a file system operation failure
	ErrorFileSystem ErrorType = iota

	// ErrorBackup indicates a file could not be backed up
	ErrorBackup

	// ErrorRewrite indicates a source file could not be rewritten
	ErrorRewrite

	// ErrorLedger indicates the env file or ignore file could not be updated
	ErrorLedger

	// ErrorConfiguration indicates invalid options
	ErrorConfiguration
)

// String returns the string representation of the error type
func (t ErrorType) String() string {
	switch t {
	case ErrorFileSystem:
		return "filesystem"
	case ErrorBackup:
		return "backup"
	case ErrorRewrite:
		return "rewrite"
	case ErrorLedger:
		return "ledger"
	case ErrorConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// ErrBackupIncomplete aborts a run before any file is rewritten
var ErrBackupIncomplete = errors.New("backup incomplete, no files were modified")

// Error represents an error that occurred during remediation
type Error struct {
	// Type is the type of error
	Type ErrorType

	// Message is the error message
	Message string

	// FilePath is the path to the file being processed when the error occurred
	FilePath string

	// Component is the component that generated the error
	Component string

	// Recoverable indicates whether the run can continue past this error
	Recoverable bool

	// Timestamp is when the error occurred
	Timestamp time.Time

	// Cause is the underlying error that caused this error
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.FilePath != "" {
		msg += fmt.Sprintf(" (file: %s, component: %s)", e.FilePath, e.Component)
	} else {
		msg += fmt.Sprintf(" (component: %s)", e.Component)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error
func NewError(errorType ErrorType, message, filePath, component string, cause error) *Error {
	return &Error{
		Type:        errorType,
		Message:     message,
		FilePath:    filePath,
		Component:   component,
		Recoverable: isRecoverable(errorType),
		Timestamp:   time.Now(),
		Cause:       cause,
	}
}

func isRecoverable(errorType ErrorType) bool {
	switch errorType {
	case ErrorRewrite:
		return true // other files still get rewritten
	case ErrorFileSystem:
		return true
	default:
		return false
	}
}

// IsType reports whether err wraps a remediation Error of type t
func IsType(err error, t ErrorType) bool {
	var re *Error
	return errors.As(err, &re) && re.Type == t
}
