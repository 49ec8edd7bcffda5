package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"sorted keys", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)
	_, err = MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestSlotDigest_IgnoresUpdatedAt(t *testing.T) {
	a := Slot{Name: "Heal", Enabled: true, Code: "return 1", UpdatedAt: 1}
	b := a
	b.UpdatedAt = 99

	assert.Equal(t, MustSlotDigest(a), MustSlotDigest(b))
	assert.Len(t, MustSlotDigest(a), 64)

	b.Code = "return 2"
	assert.NotEqual(t, MustSlotDigest(a), MustSlotDigest(b))
}

func TestSnapshotDigest_OrderIndependent(t *testing.T) {
	x := Slot{Name: "x", Code: "return 1"}
	y := Slot{Name: "Y", Enabled: true, PlayersCanRun: Bool(false)}

	d1, err := SnapshotDigest([]Slot{x, y})
	require.NoError(t, err)
	d2, err := SnapshotDigest([]Slot{y, x})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
