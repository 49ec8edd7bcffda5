package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := NewError(CodeSlotDisabled, "Heal", "slot is disabled")
	assert.Equal(t, "SLOT_DISABLED: slot is disabled (slot=Heal)", err.Error())

	wrapped := WrapError(CodeRuntimeError, "Heal", "script failed", errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "boom")
	assert.ErrorIs(t, wrapped, wrapped.Cause)
}

func TestError_IsByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewError(CodeNotFound, "x", "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrDuplicateName)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotOwner, CodeOf(fmt.Errorf("wrap: %w", NewError(CodeNotOwner, "", ""))))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestIsDenied(t *testing.T) {
	for _, c := range []Code{CodeNotFound, CodeSlotDisabled, CodeNotPermitted, CodeMissingTarget, CodeNotOwner, CodeNotPresent} {
		assert.True(t, IsDenied(NewError(c, "", "")), c)
	}
	assert.False(t, IsDenied(NewError(CodeRuntimeError, "", "")))
	assert.True(t, IsAuthoring(NewError(CodeMissingEntryPoint, "", "")))
	assert.False(t, IsAuthoring(NewError(CodeNotOwner, "", "")))
}
