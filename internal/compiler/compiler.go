package compiler

import (
	"context"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/roach88/gmslots/internal/core"
)

// bodyPrelude binds the chunk's vararg to ctx. It stays on the first line so
// error line numbers match the author's source.
const bodyPrelude = "local ctx = ...; "

// Program is a compiled slot, ready to invoke any number of times.
type Program struct {
	name  string
	form  Form
	chunk string
}

// Name returns the slot name the program was compiled for.
func (p *Program) Name() string { return p.name }

// Form returns the detected authoring convention.
func (p *Program) Form() Form { return p.form }

// Compile checks src and returns a Program.
//
// Syntax errors are COMPILE_ERROR in either form. A module-form chunk is run
// once in a scratch state without host bindings; a failure there is also
// COMPILE_ERROR, and a chunk that yields no run function is
// MISSING_ENTRY_POINT.
func Compile(name, src string) (*Program, error) {
	form := Detect(src)
	if form == FormBody {
		chunk := bodyPrelude + src
		if msg, ok := checkSyntax(name, chunk); !ok {
			return nil, &CompileError{Slot: name, Code: core.CodeCompileError, Message: msg}
		}
		return &Program{name: name, form: form, chunk: chunk}, nil
	}

	if msg, ok := checkSyntax(name, src); !ok {
		return nil, &CompileError{Slot: name, Code: core.CodeCompileError, Message: msg}
	}
	// Appending "return run" also exposes a local run; it is not valid when
	// the module already ends in its own return, so fall back to src.
	chunk := src + "\nreturn run\n"
	if _, ok := checkSyntax(name, chunk); !ok {
		chunk = src
	}

	l := newState(nil)
	if err := loadChunk(l, name, chunk); err != nil {
		return nil, &CompileError{Slot: name, Code: core.CodeCompileError, Message: errorMessage(l, err)}
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return nil, &CompileError{Slot: name, Code: core.CodeCompileError, Message: "module top level failed: " + errorMessage(l, err)}
	}
	if !pushEntry(l) {
		return nil, &CompileError{Slot: name, Code: core.CodeMissingEntryPoint,
			Message: "module does not define a run(ctx) function"}
	}
	return &Program{name: name, form: form, chunk: chunk}, nil
}

// Invoke runs the program against b in a fresh Lua state and returns the
// first value the script returned, converted to Go.
func (p *Program) Invoke(ctx context.Context, b Bindings) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := newState(&b)
	l.PushGoFunction(traceback)
	handler := l.Top()

	if err := loadChunk(l, p.name, p.chunk); err != nil {
		return nil, &ScriptError{Slot: p.name, Message: errorMessage(l, err)}
	}

	if p.form == FormModule {
		if err := l.ProtectedCall(0, 1, handler); err != nil {
			return nil, p.scriptError(l, err)
		}
		if !pushEntry(l) {
			return nil, &CompileError{Slot: p.name, Code: core.CodeMissingEntryPoint,
				Message: "module does not define a run(ctx) function"}
		}
	}

	pushContext(ctx, l, &b)
	if err := l.ProtectedCall(1, 1, handler); err != nil {
		return nil, p.scriptError(l, err)
	}
	return toGo(l, -1, 0), nil
}

func (p *Program) scriptError(l *lua.State, err error) *ScriptError {
	msg := errorMessage(l, err)
	se := &ScriptError{Slot: p.name, Message: msg}
	if i := strings.Index(msg, "\nstack traceback:"); i >= 0 {
		se.Message = msg[:i]
		se.Traceback = strings.TrimSpace(msg[i+1:])
	}
	return se
}

// traceback is the message handler for protected calls.
func traceback(l *lua.State) int {
	msg, ok := l.ToString(1)
	if !ok {
		msg = "(error object is a " + lua.TypeNameOf(l, 1) + " value)"
	}
	lua.Traceback(l, l, msg, 1)
	return 1
}

// checkSyntax parses chunk in a scratch state without running it.
func checkSyntax(name, chunk string) (string, bool) {
	l := lua.NewState()
	if err := loadChunk(l, name, chunk); err != nil {
		return errorMessage(l, err), false
	}
	return "", true
}

func loadChunk(l *lua.State, name, chunk string) error {
	return lua.LoadBuffer(l, chunk, "="+name, "")
}

// pushEntry replaces the chunk result on top of the stack with the run
// function: the result itself, its run field, or the global run.
func pushEntry(l *lua.State) bool {
	switch l.TypeOf(-1) {
	case lua.TypeFunction:
		return true
	case lua.TypeTable:
		l.Field(-1, "run")
		l.Remove(-2)
		if l.IsFunction(-1) {
			return true
		}
	}
	l.Pop(1)
	l.Global("run")
	if l.IsFunction(-1) {
		return true
	}
	l.Pop(1)
	return false
}

// errorMessage prefers the Lua error value left on the stack.
func errorMessage(l *lua.State, err error) string {
	if l.Top() > 0 {
		if msg, ok := l.ToString(-1); ok && msg != "" {
			l.Pop(1)
			return msg
		}
	}
	return err.Error()
}
