package runctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/notify"
	"github.com/roach88/gmslots/internal/testutil"
)

func TestResolve(t *testing.T) {
	b := NewBuilder(testutil.Table(t))

	tests := []struct {
		name      string
		req       core.Request
		wantActor string
		wantToken string
	}{
		{"explicit actor", core.Request{ActorID: "hero"}, "hero", "t-hero"},
		{"actorId arg", core.Request{Args: map[string]any{"actorId": "goblin"}}, "goblin", "t-goblin"},
		{"actor_id arg", core.Request{Args: map[string]any{"actor_id": "hero"}}, "hero", "t-hero"},
		{"explicit wins over args", core.Request{ActorID: "goblin", Args: map[string]any{"actorId": "hero"}}, "goblin", "t-goblin"},
		{"token arg", core.Request{Args: map[string]any{"tokenId": "t-hero-2"}}, "hero", "t-hero-2"},
		{"off-scene actor", core.Request{ActorID: "ghost"}, "ghost", ""},
		{"unknown actor", core.Request{ActorID: "nobody"}, "", ""},
		{"no reference", core.Request{}, "", ""},
		{"non-string arg", core.Request{Args: map[string]any{"actorId": 7}}, "", ""},
		{"token on inactive scene", core.Request{Args: map[string]any{"token_id": "t-ghost"}}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := b.Resolve(tt.req)
			if tt.wantActor == "" {
				assert.Nil(t, target.Actor)
			} else {
				require.NotNil(t, target.Actor)
				assert.Equal(t, tt.wantActor, target.Actor.ID)
			}
			if tt.wantToken == "" {
				assert.Nil(t, target.Token)
				assert.False(t, target.Present())
			} else {
				require.NotNil(t, target.Token)
				assert.Equal(t, tt.wantToken, target.Token.ID)
				assert.True(t, target.Present())
			}
		})
	}
}

func TestResolve_KeepsRequestedID(t *testing.T) {
	b := NewBuilder(testutil.Table(t))
	target := b.Resolve(core.Request{ActorID: " nobody "})
	assert.Equal(t, "nobody", target.ActorID)
	require.NotNil(t, target.Scene)
	assert.Equal(t, "road", target.Scene.ID)
}

func TestResolve_NoActiveScene(t *testing.T) {
	w := testutil.Table(t)
	w.Activate("")
	target := NewBuilder(w).Resolve(core.Request{ActorID: "hero"})
	require.NotNil(t, target.Actor)
	assert.Nil(t, target.Token)
	assert.Nil(t, target.Scene)
}

func TestBuild(t *testing.T) {
	w := testutil.Table(t)
	b := NewBuilder(w)
	args := map[string]any{"actorId": "hero", "nested": map[string]any{"k": "v"}}
	req := core.Request{Slot: "Heal", UserID: "alice", Args: args}

	c := b.Build(req, b.Resolve(req), nil, w)
	assert.Equal(t, "Alice", c.User.Name)
	assert.Equal(t, "Hero", c.Actor.Name)

	c.Args["nested"].(map[string]any)["k"] = "changed"
	assert.Equal(t, "v", args["nested"].(map[string]any)["k"], "args are copied")
}

func TestBuild_UnknownUser(t *testing.T) {
	b := NewBuilder(testutil.Table(t))
	c := b.Build(core.Request{UserID: "stranger"}, Target{}, nil, nil)
	assert.Equal(t, "stranger", c.User.ID)
	assert.False(t, c.User.IsGM())
}

func TestBindings(t *testing.T) {
	w := testutil.Table(t)
	b := NewBuilder(w)
	rec := &notify.Recorder{}
	req := core.Request{Slot: "Heal", UserID: "gm", ActorID: "hero"}

	bind := b.Build(req, b.Resolve(req), rec, w).Bindings()

	assert.Equal(t, "hero", bind.Actor["id"])
	assert.Equal(t, "t-hero", bind.Token["id"])
	assert.Equal(t, "road", bind.Token["sceneId"])
	assert.Equal(t, "Road", bind.Scene["name"])
	assert.Equal(t, true, bind.User["isGM"])

	bind.Notify("careful", "warn")
	require.Len(t, rec.All(), 1)
	assert.Equal(t, notify.Notification{Slot: "Heal", UserID: "gm", Level: notify.LevelWarn, Message: "careful"}, rec.All()[0])

	require.NoError(t, bind.Chat(context.Background(), "hi"))
	assert.Equal(t, "gm", w.Chat()[0].UserID)

	require.NoError(t, bind.UpdateActor(context.Background(), "hero", map[string]any{"hp": 1}))
	hero, _ := w.Actor("hero")
	assert.Equal(t, 1, hero.Data["hp"])
}

func TestBindings_NilTargets(t *testing.T) {
	bind := (&Context{User: testutil.Table(t).Users()[0]}).Bindings()
	assert.Nil(t, bind.Actor)
	assert.Nil(t, bind.Token)
	assert.Nil(t, bind.Scene)
	assert.Nil(t, bind.Notify)
	assert.Nil(t, bind.Chat)
}
