package compiler

import (
	"strconv"
	"strings"

	"github.com/Shopify/go-lua"
)

// safeLibraries are opened in every state. io, os, package and debug are
// left out.
var safeLibraries = []struct {
	name string
	open lua.Function
}{
	{"_G", lua.BaseOpen},
	{"string", lua.StringOpen},
	{"table", lua.TableOpen},
	{"math", lua.MathOpen},
	{"bit32", lua.Bit32Open},
}

// newState opens the safe libraries and strips base functions that reach
// the file system. With bindings, print is routed to the host log.
func newState(b *Bindings) *lua.State {
	l := lua.NewState()
	for _, lib := range safeLibraries {
		lua.Require(l, lib.name, lib.open, true)
		l.Pop(1)
	}
	for _, name := range []string{"dofile", "loadfile"} {
		l.PushNil()
		l.SetGlobal(name)
	}
	if b != nil {
		l.PushGoFunction(func(l *lua.State) int {
			n := l.Top()
			parts := make([]string, 0, n)
			for i := 1; i <= n; i++ {
				parts = append(parts, displayString(l, i))
			}
			b.log(strings.Join(parts, "\t"))
			return 0
		})
		l.SetGlobal("print")
	}
	return l
}

// displayString renders a value the way print shows it, without touching
// the stack.
func displayString(l *lua.State, index int) string {
	switch l.TypeOf(index) {
	case lua.TypeNil, lua.TypeNone:
		return "nil"
	case lua.TypeBoolean:
		return strconv.FormatBool(l.ToBoolean(index))
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return formatNumber(n)
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	default:
		return lua.TypeNameOf(l, index)
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', 14, 64)
}
