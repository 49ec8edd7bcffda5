package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock(t *testing.T) {
	c := NewStepClock(time.Second)
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())
	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "run-0001", g.Generate())
	assert.Equal(t, "run-0002", g.Generate())
}

func TestTable(t *testing.T) {
	w := Table(t)
	sc, ok := w.ActiveScene()
	assert.True(t, ok)
	assert.Equal(t, "road", sc.ID)
}
