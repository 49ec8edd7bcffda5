package compiler

import (
	"fmt"

	"github.com/roach88/gmslots/internal/core"
)

// CompileError reports source that cannot become a Program. Code is
// COMPILE_ERROR for bad syntax and MISSING_ENTRY_POINT for a module without
// a run function.
type CompileError struct {
	Slot    string
	Code    core.Code
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the coded form so core.CodeOf works on compiler errors.
func (e *CompileError) Unwrap() error {
	return core.NewError(e.Code, e.Slot, e.Message)
}

// ScriptError reports a failure raised while a Program was running.
type ScriptError struct {
	Slot      string
	Message   string
	Traceback string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", core.CodeRuntimeError, e.Message)
}

// Unwrap exposes the coded form so core.CodeOf works on script errors.
func (e *ScriptError) Unwrap() error {
	return core.NewError(core.CodeRuntimeError, e.Slot, e.Message)
}
