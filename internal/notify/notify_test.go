package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/gmslots/internal/core"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("shout"))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	sink.Notify(context.Background(), Notification{
		Slot: "Heal", UserID: "alice", Level: LevelWarn, Message: "denied", Code: core.CodeNotOwner,
	})

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "msg=denied")
	assert.Contains(t, out, "slot=Heal")
	assert.Contains(t, out, "code=NOT_OWNER")
}

func TestFanoutAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Fanout{a, b}.Notify(context.Background(), Notification{Message: "hi"})

	assert.Len(t, a.All(), 1)
	assert.Len(t, b.All(), 1)
	a.Reset()
	assert.Empty(t, a.All())
}
