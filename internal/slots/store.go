package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/store"
)

// SettingKey is the settings key holding the slot collection.
const SettingKey = "slots"

// DefaultCode is the template given to slots created with Add.
const DefaultCode = `-- ctx.actor, ctx.token, ctx.scene, ctx.user and ctx.args are available.
ctx.notify("Hello from " .. (ctx.actor and ctx.actor.name or "nobody"))
`

// Store is the Slot Store.
//
// Thread-safety: writers are serialised by an internal mutex; the settings
// collaborator provides the atomic single-key write.
type Store struct {
	settings store.Settings
	module   string
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Slot Store for module over settings.
func New(settings store.Settings, module string, opts ...Option) *Store {
	s := &Store{
		settings: settings,
		module:   module,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Module returns the module key the store reads and writes under.
func (s *Store) Module() string {
	return s.module
}

// load reads the collection. A missing setting is an empty collection.
func (s *Store) load(ctx context.Context) ([]core.Slot, error) {
	raw, ok, err := s.settings.Get(ctx, s.module, SettingKey)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []core.Slot{}, nil
	}
	var list []core.Slot
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	if list == nil {
		list = []core.Slot{}
	}
	return list, nil
}

// save writes the collection in display order.
func (s *Store) save(ctx context.Context, list []core.Slot) error {
	core.SortSlots(list)
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	if err := s.settings.Set(ctx, s.module, SettingKey, raw); err != nil {
		return fmt.Errorf("save slots: %w", err)
	}
	return nil
}

// stamp returns an UpdatedAt value greater than every stamp in list.
func (s *Store) stamp(list []core.Slot) int64 {
	ts := s.now().UnixMilli()
	for _, sl := range list {
		if sl.UpdatedAt >= ts {
			ts = sl.UpdatedAt + 1
		}
	}
	return ts
}

func indexOf(list []core.Slot, name string) int {
	key := core.NameKey(name)
	for i, sl := range list {
		if sl.Key() == key {
			return i
		}
	}
	return -1
}

func cloneAll(list []core.Slot) []core.Slot {
	out := make([]core.Slot, len(list))
	for i, sl := range list {
		out[i] = sl.Clone()
	}
	return out
}

// List returns slot names in display order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(list))
	for i, sl := range list {
		names[i] = sl.Name
	}
	core.SortNames(names)
	return names, nil
}

// All returns copies of every slot in display order.
func (s *Store) All(ctx context.Context) ([]core.Slot, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	core.SortSlots(list)
	return cloneAll(list), nil
}

// Get returns a copy of the named slot.
func (s *Store) Get(ctx context.Context, name string) (core.Slot, error) {
	list, err := s.load(ctx)
	if err != nil {
		return core.Slot{}, err
	}
	i := indexOf(list, name)
	if i < 0 {
		return core.Slot{}, core.NewError(core.CodeNotFound, core.CleanName(name), "slot not found")
	}
	return list[i].Clone(), nil
}

// Add creates an enabled slot with the template code.
func (s *Store) Add(ctx context.Context, name string) (core.Slot, error) {
	name = core.CleanName(name)
	if name == "" {
		return core.Slot{}, core.NewError(core.CodeInvalidName, "", "slot name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return core.Slot{}, err
	}
	if i := indexOf(list, name); i >= 0 {
		return core.Slot{}, core.NewError(core.CodeDuplicateName, name,
			fmt.Sprintf("a slot named %q already exists", list[i].Name))
	}

	sl := core.Slot{Name: name, Enabled: true, Code: DefaultCode, UpdatedAt: s.stamp(list)}
	list = append(list, sl)
	if err := s.save(ctx, list); err != nil {
		return core.Slot{}, err
	}
	return sl.Clone(), nil
}

// Upsert inserts or replaces a slot.
//
// previous names the slot being edited; pass "" for a plain upsert by name.
// When previous is set and the new name belongs to a different slot, Upsert
// fails with DUPLICATE_NAME. A plain upsert of an existing name replaces that
// record: the store never holds two slots with the same identity.
func (s *Store) Upsert(ctx context.Context, sl core.Slot, previous string) (core.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return core.Slot{}, err
	}
	return s.put(ctx, list, sl, previous)
}

// put writes sl into list and saves it. Callers hold s.mu.
func (s *Store) put(ctx context.Context, list []core.Slot, sl core.Slot, previous string) (core.Slot, error) {
	sl = sl.Clone()
	sl.Name = core.CleanName(sl.Name)
	if sl.Name == "" {
		return core.Slot{}, core.NewError(core.CodeInvalidName, "", "slot name must not be empty")
	}

	target := indexOf(list, sl.Name)
	pos := target
	if previous != "" {
		pos = indexOf(list, previous)
		if pos < 0 {
			return core.Slot{}, core.NewError(core.CodeNotFound, core.CleanName(previous), "slot not found")
		}
		if target >= 0 && target != pos {
			return core.Slot{}, core.NewError(core.CodeDuplicateName, sl.Name,
				fmt.Sprintf("cannot rename %q: %q already exists", list[pos].Name, list[target].Name))
		}
	}

	sl.UpdatedAt = s.stamp(list)
	if pos >= 0 {
		list[pos] = sl
	} else {
		list = append(list, sl)
	}
	if err := s.save(ctx, list); err != nil {
		return core.Slot{}, err
	}
	return sl.Clone(), nil
}

// Delete removes the named slot.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(list, name)
	if i < 0 {
		return core.NewError(core.CodeNotFound, core.CleanName(name), "slot not found")
	}
	list = append(list[:i], list[i+1:]...)
	return s.save(ctx, list)
}

// update applies fn to a copy of the named slot and writes it back. The
// read and the write happen under one lock so concurrent setters on the
// same slot do not drop each other's changes.
func (s *Store) update(ctx context.Context, name string, fn func(*core.Slot)) (core.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return core.Slot{}, err
	}
	i := indexOf(list, name)
	if i < 0 {
		return core.Slot{}, core.NewError(core.CodeNotFound, core.CleanName(name), "slot not found")
	}
	sl := list[i].Clone()
	previous := sl.Name
	fn(&sl)
	return s.put(ctx, list, sl, previous)
}

// Rename changes a slot's name. Renaming onto another slot is DUPLICATE_NAME;
// changing only the case of a name is allowed.
func (s *Store) Rename(ctx context.Context, oldName, newName string) (core.Slot, error) {
	return s.update(ctx, oldName, func(sl *core.Slot) { sl.Name = newName })
}

// SetEnabled toggles the enabled gate.
func (s *Store) SetEnabled(ctx context.Context, name string, enabled bool) (core.Slot, error) {
	return s.update(ctx, name, func(sl *core.Slot) { sl.Enabled = enabled })
}

// SetCode replaces the slot source.
func (s *Store) SetCode(ctx context.Context, name, code string) (core.Slot, error) {
	return s.update(ctx, name, func(sl *core.Slot) { sl.Code = code })
}

// SetNote replaces the operator note.
func (s *Store) SetNote(ctx context.Context, name, note string) (core.Slot, error) {
	return s.update(ctx, name, func(sl *core.Slot) { sl.Note = note })
}

// SetPlayersCanRun sets or clears (nil) the per-slot player override.
func (s *Store) SetPlayersCanRun(ctx context.Context, name string, allowed *bool) (core.Slot, error) {
	return s.update(ctx, name, func(sl *core.Slot) {
		sl.PlayersCanRun = nil
		if allowed != nil {
			sl.PlayersCanRun = core.Bool(*allowed)
		}
	})
}
