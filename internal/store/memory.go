package store

import (
	"context"
	"sync"

	"github.com/roach88/gmslots/internal/core"
)

// Memory is an in-process Settings implementation that also keeps an
// execution log. Values are copied on the way in and out.
type Memory struct {
	mu         sync.RWMutex
	values     map[string][]byte
	writes     int
	executions []core.Execution
}

var _ Settings = (*Memory)(nil)

// NewMemory creates an empty in-memory settings store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func memoryKey(module, key string) string {
	return module + "\x00" + key
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, module, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[memoryKey(module, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value.
func (m *Memory) Set(_ context.Context, module, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[memoryKey(module, key)] = append([]byte(nil), value...)
	m.writes++
	return nil
}

// Writes returns how many Set calls have been applied.
// Tests use it to prove that an operation did not write.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// RecordExecution appends an execution record.
func (m *Memory) RecordExecution(_ context.Context, e core.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, e)
	return nil
}

// ReadExecutions returns records matching f, oldest first.
func (m *Memory) ReadExecutions(_ context.Context, f ExecutionFilter) ([]core.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Execution{}
	for _, e := range m.executions {
		if f.Slot != "" && e.Slot != f.Slot {
			continue
		}
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		out = append(out, e)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// LastSeq returns the highest recorded sequence number, or 0.
func (m *Memory) LastSeq(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var seq int64
	for _, e := range m.executions {
		seq = max(seq, e.Seq)
	}
	return seq, nil
}
