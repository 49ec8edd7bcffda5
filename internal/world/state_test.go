package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTable(t *testing.T) *State {
	t.Helper()
	s, err := Load("testdata/table.yaml")
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	s := loadTable(t)

	hero, ok := s.Actor("hero")
	require.True(t, ok)
	assert.Equal(t, "Hero", hero.Name)
	assert.Equal(t, 10, hero.Data["hp"])

	sc, ok := s.ActiveScene()
	require.True(t, ok)
	assert.Equal(t, "road", sc.ID)
	require.Len(t, sc.Tokens, 2)
	assert.Equal(t, "t-hero-1", sc.Tokens[0].ID)
	assert.Equal(t, "road", sc.Tokens[0].SceneID)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"duplicate user", "users: [{id: a}, {id: a}]"},
		{"duplicate actor", "actors: [{id: x}, {id: x}]"},
		{"two active scenes", "scenes: [{id: a, active: true}, {id: b, active: true}]"},
		{"bad level", "actors: [{id: x, ownership: {u: SUPREME}}]"},
		{"level out of range", "actors: [{id: x, default: 9}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestPermission(t *testing.T) {
	s := loadTable(t)

	assert.Equal(t, LevelOwner, s.Permission("alice", "hero"))
	assert.Equal(t, LevelObserver, s.Permission("bob", "hero"))
	assert.Equal(t, LevelLimited, s.Permission("alice", "goblin"))
	assert.Equal(t, LevelOwner, s.Permission("gm", "goblin"), "GMs own everything")
	assert.Equal(t, LevelNone, s.Permission("nobody", "hero"))
	assert.Equal(t, LevelNone, s.Permission("alice", "nothing"))
}

func TestActor_ReturnsCopy(t *testing.T) {
	s := loadTable(t)
	a, _ := s.Actor("hero")
	a.Data["hp"] = 0
	a.Data["tags"].([]any)[0] = "coward"

	again, _ := s.Actor("hero")
	assert.Equal(t, 10, again.Data["hp"])
	assert.Equal(t, []any{"brave"}, again.Data["tags"])
}

func TestUpdateActor(t *testing.T) {
	ctx := context.Background()
	s := loadTable(t)

	require.NoError(t, s.UpdateActor(ctx, "hero", map[string]any{"hp": 7, "name": "Hurt Hero", "tags": nil}))
	a, _ := s.Actor("hero")
	assert.Equal(t, "Hurt Hero", a.Name)
	assert.Equal(t, 7, a.Data["hp"])
	assert.NotContains(t, a.Data, "tags")

	assert.ErrorIs(t, s.UpdateActor(ctx, "ghost", nil), ErrUnknownActor)
}

func TestToken(t *testing.T) {
	s := loadTable(t)
	tok, ok := s.Token("cave", "t-goblin")
	require.True(t, ok)
	assert.Equal(t, "goblin", tok.ActorID)

	_, ok = s.Token("road", "t-goblin")
	assert.False(t, ok)
}

func TestActivate(t *testing.T) {
	s := loadTable(t)
	require.True(t, s.Activate("cave"))
	sc, ok := s.ActiveScene()
	require.True(t, ok)
	assert.Equal(t, "cave", sc.ID)

	assert.False(t, s.Activate("moon"))
	_, ok = s.ActiveScene()
	assert.False(t, ok)
}

func TestChat(t *testing.T) {
	s := loadTable(t)
	require.NoError(t, s.PostChat(context.Background(), "gm", "hello"))
	assert.Equal(t, []ChatMessage{{UserID: "gm", Text: "hello"}}, s.Chat())
}

func TestAuthority_IsPrimary(t *testing.T) {
	s, err := Parse([]byte(`
users:
  - {id: gm-b, role: gamemaster, active: true}
  - {id: gm-a, role: assistant, active: true}
  - {id: p, role: player, active: true}
`))
	require.NoError(t, err)

	assert.True(t, NewAuthority(s, "gm-a").IsPrimary())
	assert.False(t, NewAuthority(s, "gm-b").IsPrimary())
	assert.False(t, NewAuthority(s, "p").IsPrimary())

	// Handoff: once gm-a leaves, gm-b takes over.
	s.SetActive("gm-a", false)
	assert.False(t, NewAuthority(s, "gm-a").IsPrimary())
	assert.True(t, NewAuthority(s, "gm-b").IsPrimary())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("owner")
	require.NoError(t, err)
	assert.Equal(t, LevelOwner, l)
	l, err = ParseLevel("1")
	require.NoError(t, err)
	assert.Equal(t, LevelLimited, l)
	assert.Equal(t, "OBSERVER", LevelObserver.String())
}
