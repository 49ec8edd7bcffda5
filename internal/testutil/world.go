package testutil

import (
	"testing"

	"github.com/roach88/gmslots/internal/world"
)

// Table returns the standard test world:
//
//   - users: gm (gamemaster), alice and bob (players), all active
//   - actors: hero (owned by alice, observed by bob), goblin (nobody owns),
//     ghost (owned by bob, no token anywhere)
//   - scenes: road (active; tokens t-hero, t-hero-2 for hero and t-goblin),
//     cave (inactive; token t-ghost for ghost)
func Table(t testing.TB) *world.State {
	t.Helper()
	s, err := world.New(TableDocument())
	if err != nil {
		t.Fatalf("build table world: %v", err)
	}
	return s
}

// TableDocument is the document behind Table.
func TableDocument() world.Document {
	return world.Document{
		Users: []world.User{
			{ID: "gm", Name: "Game Master", Role: world.RoleGM, Active: true},
			{ID: "alice", Name: "Alice", Role: world.RolePlayer, Active: true},
			{ID: "bob", Name: "Bob", Role: world.RolePlayer, Active: true},
		},
		Actors: []world.Actor{
			{
				ID: "hero", Name: "Hero", Type: "character",
				Data:      map[string]any{"hp": 10},
				Ownership: map[string]world.Level{"alice": world.LevelOwner, "bob": world.LevelObserver},
			},
			{ID: "goblin", Name: "Goblin", Type: "npc", Data: map[string]any{"hp": 4}},
			{
				ID: "ghost", Name: "Ghost", Type: "npc",
				Ownership: map[string]world.Level{"bob": world.LevelOwner},
			},
		},
		Scenes: []world.Scene{
			{
				ID: "road", Name: "Road", Active: true,
				Tokens: []world.Token{
					{ID: "t-hero", Name: "Hero", ActorID: "hero", X: 1, Y: 1},
					{ID: "t-goblin", Name: "Goblin", ActorID: "goblin", X: 4, Y: 2},
					{ID: "t-hero-2", Name: "Hero (illusion)", ActorID: "hero", X: 6, Y: 6},
				},
			},
			{
				ID: "cave", Name: "Cave",
				Tokens: []world.Token{
					{ID: "t-ghost", Name: "Ghost", ActorID: "ghost"},
				},
			},
		},
	}
}
