package core

import (
	"errors"
	"fmt"
)

// Code categorizes errors surfaced by the store, the gate and the engine.
type Code string

const (
	// CodeNotFound indicates the named slot does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeSlotDisabled indicates the slot is switched off.
	CodeSlotDisabled Code = "SLOT_DISABLED"

	// CodeNotPermitted indicates the slot forbids players from running it.
	CodeNotPermitted Code = "NOT_PERMITTED"

	// CodeMissingTarget indicates ownership is required but no target resolved.
	CodeMissingTarget Code = "MISSING_TARGET"

	// CodeNotOwner indicates the requester does not own the target.
	CodeNotOwner Code = "NOT_OWNER"

	// CodeNotPresent indicates the target has no token on the active scene.
	CodeNotPresent Code = "NOT_PRESENT"

	// CodeCompileError indicates the slot source is not valid Lua.
	CodeCompileError Code = "COMPILE_ERROR"

	// CodeMissingEntryPoint indicates module-form source compiled but has no run function.
	CodeMissingEntryPoint Code = "MISSING_ENTRY_POINT"

	// CodeRuntimeError indicates the script failed while running.
	CodeRuntimeError Code = "RUNTIME_ERROR"

	// CodeDuplicateName indicates a write would give two slots the same identity.
	CodeDuplicateName Code = "DUPLICATE_NAME"

	// CodeInvalidName indicates an empty or whitespace-only slot name.
	CodeInvalidName Code = "INVALID_NAME"

	// CodeInvalidImport indicates an import document that cannot be read at all.
	CodeInvalidImport Code = "INVALID_IMPORT"
)

// denials are the authorization-layer codes.
var denials = map[Code]bool{
	CodeNotFound:      true,
	CodeSlotDisabled:  true,
	CodeNotPermitted:  true,
	CodeMissingTarget: true,
	CodeNotOwner:      true,
	CodeNotPresent:    true,
}

// Error is the coded error type shared by all gmslots components.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Slot names the slot involved, if any.
	Slot string

	// UserID identifies the requester, if any.
	UserID string

	// Details contains additional context.
	Details map[string]string

	// Cause is the wrapped underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Slot != "" {
		msg = fmt.Sprintf("%s (slot=%s)", msg, e.Slot)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates an Error for a slot.
func NewError(code Code, slot, message string) *Error {
	return &Error{Code: code, Slot: slot, Message: message}
}

// WrapError creates an Error wrapping cause.
func WrapError(code Code, slot, message string, cause error) *Error {
	return &Error{Code: code, Slot: slot, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons by code.
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "slot not found"}
	ErrDuplicateName = &Error{Code: CodeDuplicateName, Message: "duplicate slot name"}
	ErrInvalidName   = &Error{Code: CodeInvalidName, Message: "invalid slot name"}
	ErrInvalidImport = &Error{Code: CodeInvalidImport, Message: "invalid import document"}
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsDenied reports whether err is an authorization-layer refusal.
func IsDenied(err error) bool {
	return denials[CodeOf(err)]
}

// IsAuthoring reports whether err is attributable to the slot author.
func IsAuthoring(err error) bool {
	c := CodeOf(err)
	return c == CodeCompileError || c == CodeMissingEntryPoint
}
