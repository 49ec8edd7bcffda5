package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/Shopify/go-lua"
)

// maxDepth bounds value conversion so self-referencing tables terminate.
const maxDepth = 32

// Bindings is what a script sees as ctx. Value fields are plain Go data
// (maps, slices, scalars); nil maps become nil in Lua.
type Bindings struct {
	Args  map[string]any
	Actor map[string]any
	Token map[string]any
	Scene map[string]any
	User  map[string]any

	// Notify shows msg to the requester; level is info, warn or error.
	Notify func(msg, level string)
	// Chat posts text to the shared chat as the requester.
	Chat func(ctx context.Context, text string) error
	// UpdateActor merges patch into the actor with id.
	UpdateActor func(ctx context.Context, id string, patch map[string]any) error
	// Log writes a diagnostic line for the operator.
	Log func(msg string)
}

func (b *Bindings) log(msg string) {
	if b.Log != nil {
		b.Log(msg)
	}
}

// pushContext pushes the ctx table for one invocation.
func pushContext(ctx context.Context, l *lua.State, b *Bindings) {
	l.NewTable()
	fields := []struct {
		key   string
		value map[string]any
	}{
		{"args", b.Args},
		{"actor", b.Actor},
		{"token", b.Token},
		{"scene", b.Scene},
		{"user", b.User},
	}
	for _, f := range fields {
		if f.value == nil && f.key == "args" {
			l.NewTable()
		} else {
			pushValue(l, f.value, 0)
		}
		l.SetField(-2, f.key)
	}

	functions := []lua.RegistryFunction{
		{Name: "notify", Function: func(l *lua.State) int {
			base := selfOffset(l)
			msg := lua.CheckString(l, base+1)
			level := lua.OptString(l, base+2, "info")
			if b.Notify != nil {
				b.Notify(msg, level)
			}
			return 0
		}},
		{Name: "chat", Function: func(l *lua.State) int {
			text := lua.CheckString(l, selfOffset(l)+1)
			if b.Chat != nil {
				if err := b.Chat(ctx, text); err != nil {
					lua.Errorf(l, "chat: %s", err.Error())
				}
			}
			return 0
		}},
		{Name: "update_actor", Function: func(l *lua.State) int {
			base := selfOffset(l)
			id := lua.CheckString(l, base+1)
			lua.CheckType(l, base+2, lua.TypeTable)
			patch, _ := toGo(l, base+2, 0).(map[string]any)
			if patch == nil {
				// An empty table converts as a sequence.
				patch = map[string]any{}
			}
			if b.UpdateActor != nil {
				if err := b.UpdateActor(ctx, id, patch); err != nil {
					lua.Errorf(l, "update_actor: %s", err.Error())
				}
			}
			return 0
		}},
		{Name: "log", Function: func(l *lua.State) int {
			base := selfOffset(l)
			parts := ""
			for i := base + 1; i <= l.Top(); i++ {
				if parts != "" {
					parts += " "
				}
				parts += displayString(l, i)
			}
			b.log(parts)
			return 0
		}},
	}
	// The ctx table itself is the shared upvalue used by selfOffset.
	l.PushValue(-1)
	lua.SetFunctions(l, functions, 1)
}

// selfOffset is 1 when the function was called with colon syntax
// (ctx:notify("x")), which passes the ctx table first.
func selfOffset(l *lua.State) int {
	if l.TypeOf(1) == lua.TypeTable && l.RawEqual(1, lua.UpValueIndex(1)) {
		return 1
	}
	return 0
}

// pushValue converts a Go value to Lua.
func pushValue(l *lua.State, v any, depth int) {
	if depth > maxDepth {
		l.PushNil()
		return
	}
	switch t := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(t)
	case string:
		l.PushString(t)
	case int:
		l.PushInteger(t)
	case int64:
		l.PushNumber(float64(t))
	case int32:
		l.PushInteger(int(t))
	case uint64:
		l.PushNumber(float64(t))
	case float64:
		l.PushNumber(t)
	case float32:
		l.PushNumber(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			l.PushNumber(f)
		} else {
			l.PushString(t.String())
		}
	case []any:
		l.CreateTable(len(t), 0)
		for i, e := range t {
			pushValue(l, e, depth+1)
			l.RawSetInt(-2, i+1)
		}
	case []string:
		l.CreateTable(len(t), 0)
		for i, e := range t {
			l.PushString(e)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		if t == nil {
			l.PushNil()
			return
		}
		l.CreateTable(0, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pushValue(l, t[k], depth+1)
			l.SetField(-2, k)
		}
	default:
		l.PushString(fmt.Sprint(t))
	}
}

// toGo converts the Lua value at index. Numbers become float64; a table
// whose keys are exactly 1..n becomes []any, any other table
// map[string]any with non-string keys formatted. Functions and userdata
// become nil.
func toGo(l *lua.State, index, depth int) any {
	if depth > maxDepth {
		return nil
	}
	switch l.TypeOf(index) {
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return n
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeTable:
		return tableToGo(l, l.AbsIndex(index), depth)
	default:
		return nil
	}
}

func tableToGo(l *lua.State, index, depth int) any {
	count := 0
	sequence := true
	l.PushNil()
	for l.Next(index) {
		count++
		if l.TypeOf(-2) != lua.TypeNumber {
			sequence = false
		} else if n, _ := l.ToNumber(-2); n != math.Trunc(n) || n < 1 {
			sequence = false
		}
		l.Pop(1)
	}
	if sequence && count == l.RawLength(index) {
		out := make([]any, count)
		for i := 1; i <= count; i++ {
			l.RawGetInt(index, i)
			out[i-1] = toGo(l, -1, depth+1)
			l.Pop(1)
		}
		return out
	}

	out := make(map[string]any, count)
	l.PushNil()
	for l.Next(index) {
		key := tableKey(l, -2)
		out[key] = toGo(l, -1, depth+1)
		l.Pop(1)
	}
	return out
}

// tableKey renders a key without converting it in place, which would break
// Next.
func tableKey(l *lua.State, index int) string {
	if l.TypeOf(index) == lua.TypeString {
		s, _ := l.ToString(index)
		return s
	}
	return displayString(l, index)
}
