package compiler

import "regexp"

// Form is the authoring convention of a slot source.
type Form int

const (
	// FormBody is a bare statement body with an implicit ctx parameter.
	FormBody Form = iota
	// FormModule declares its own run(ctx) entry point.
	FormModule
)

func (f Form) String() string {
	if f == FormModule {
		return "module"
	}
	return "body"
}

var (
	runDeclaration = regexp.MustCompile(`(?m)^(local\s+)?function\s+run\s*\(\s*[A-Za-z_][A-Za-z0-9_]*\s*\)`)
	runAssignment  = regexp.MustCompile(`(?m)^(local\s+)?run\s*=\s*function\s*\(\s*[A-Za-z_][A-Za-z0-9_]*\s*\)`)
)

// Detect classifies src. Only a declaration starting in column 0 counts as
// top level; an indented run inside a helper or an if block, or one that
// appears mid-line, leaves src a body.
func Detect(src string) Form {
	if runDeclaration.MatchString(src) || runAssignment.MatchString(src) {
		return FormModule
	}
	return FormBody
}
