package slots

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/store"
)

// fixedClock returns a clock frozen at 2026-03-01T10:00:00Z.
func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestStore(t *testing.T) (*Store, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return New(mem, "gm-slots", WithClock(fixedClock())), mem
}

func TestAdd_Defaults(t *testing.T) {
	s, _ := newTestStore(t)

	sl, err := s.Add(context.Background(), "  Heal  ")
	require.NoError(t, err)
	assert.Equal(t, "Heal", sl.Name)
	assert.True(t, sl.Enabled)
	assert.Equal(t, DefaultCode, sl.Code)
	assert.Nil(t, sl.PlayersCanRun)
	assert.NotZero(t, sl.UpdatedAt)
}

func TestAdd_RejectsBlankAndDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Add(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrInvalidName)

	_, err = s.Add(ctx, "Heal")
	require.NoError(t, err)
	_, err = s.Add(ctx, " HEAL ")
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Heal"}, names)
}

func TestUpsert_SameIdentityMerges(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Upsert(ctx, core.Slot{Name: "Heal", Code: "return 1"}, "")
	require.NoError(t, err)
	_, err = s.Upsert(ctx, core.Slot{Name: "  heal", Code: "return 2", Enabled: true}, "")
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "names differing by case/whitespace are one slot")
	assert.Equal(t, "heal", all[0].Name)
	assert.Equal(t, "return 2", all[0].Code)
}

func TestUpsert_RenameOntoOtherSlotIsDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.Add(ctx, "Heal")
	require.NoError(t, err)
	_, err = s.Add(ctx, "Smite")
	require.NoError(t, err)

	_, err = s.Rename(ctx, "Smite", "HEAL")
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	// Changing only the case of the slot's own name is allowed.
	sl, err := s.Rename(ctx, "Smite", "SMITE")
	require.NoError(t, err)
	assert.Equal(t, "SMITE", sl.Name)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Heal", "SMITE"}, names)
}

func TestUpsert_RenameMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Upsert(context.Background(), core.Slot{Name: "x"}, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdatedAt_StrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t) // frozen clock: stamps must still increase

	a, err := s.Add(ctx, "a")
	require.NoError(t, err)
	b, err := s.SetEnabled(ctx, "a", false)
	require.NoError(t, err)
	c, err := s.SetCode(ctx, "a", "return 1")
	require.NoError(t, err)

	assert.Less(t, a.UpdatedAt, b.UpdatedAt)
	assert.Less(t, b.UpdatedAt, c.UpdatedAt)
}

func TestGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.Upsert(ctx, core.Slot{Name: "Heal", PlayersCanRun: core.Bool(true)}, "")
	require.NoError(t, err)

	sl, err := s.Get(ctx, "heal")
	require.NoError(t, err)
	sl.Code = "mutated"
	*sl.PlayersCanRun = false

	again, err := s.Get(ctx, "HEAL")
	require.NoError(t, err)
	assert.Empty(t, again.Code)
	assert.True(t, *again.PlayersCanRun)
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.Equal(t, core.CodeNotFound, core.CodeOf(err))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.Add(ctx, "Heal")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, " HEAL "))
	assert.ErrorIs(t, s.Delete(ctx, "Heal"), core.ErrNotFound)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSetPlayersCanRun(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, err := s.Add(ctx, "Heal")
	require.NoError(t, err)

	sl, err := s.SetPlayersCanRun(ctx, "Heal", core.Bool(false))
	require.NoError(t, err)
	require.NotNil(t, sl.PlayersCanRun)
	assert.False(t, *sl.PlayersCanRun)

	sl, err = s.SetPlayersCanRun(ctx, "Heal", nil)
	require.NoError(t, err)
	assert.Nil(t, sl.PlayersCanRun)
}

func TestSetters_ConcurrentChangesAllLand(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := 0; i < 50; i++ {
		_, err := s.Upsert(ctx, core.Slot{Name: "Heal", Enabled: true}, "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() { defer wg.Done(); _, _ = s.SetNote(ctx, "Heal", "party heal") }()
		go func() { defer wg.Done(); _, _ = s.SetEnabled(ctx, "Heal", false) }()
		go func() { defer wg.Done(); _, _ = s.SetCode(ctx, "Heal", "return 1") }()
		wg.Wait()

		sl, err := s.Get(ctx, "Heal")
		require.NoError(t, err)
		require.Equal(t, "party heal", sl.Note, "iteration %d", i)
		require.False(t, sl.Enabled, "iteration %d", i)
		require.Equal(t, "return 1", sl.Code, "iteration %d", i)
	}
}

func TestList_DisplayOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, n := range []string{"zeta", "Alpha", "beta"} {
		_, err := s.Add(ctx, n)
		require.NoError(t, err)
	}

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "beta", "zeta"}, names)
}

func TestReads_DoNotWrite(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	_, err := s.Add(ctx, "Heal")
	require.NoError(t, err)
	before := mem.Writes()

	_, _ = s.List(ctx)
	_, _ = s.All(ctx)
	_, _ = s.Get(ctx, "Heal")
	_, _ = s.Export(ctx)

	assert.Equal(t, before, mem.Writes())
}

func TestStore_SQLiteBacked(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(t.TempDir() + "/slots.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, "gm-slots")
	_, err = s.Add(ctx, "Heal")
	require.NoError(t, err)

	reopened := New(db, "gm-slots")
	sl, err := reopened.Get(ctx, "heal")
	require.NoError(t, err)
	assert.Equal(t, "Heal", sl.Name)
}
