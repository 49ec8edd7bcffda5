// Package runctx resolves a run request against the world and builds the
// capability bundle a script receives as ctx.
//
// The builder never authorizes and never fails: unresolved references come
// back as nil and are left to the gate and the script author.
package runctx

import (
	"context"
	"strings"

	"github.com/roach88/gmslots/internal/compiler"
	"github.com/roach88/gmslots/internal/core"
	"github.com/roach88/gmslots/internal/notify"
	"github.com/roach88/gmslots/internal/world"
)

// Argument keys consulted when the request names no actor.
var (
	actorKeys = []string{"actorId", "actorID", "actor_id"}
	tokenKeys = []string{"tokenId", "tokenID", "token_id"}
)

// Target is the resolved authorization target of a request.
type Target struct {
	// ActorID is the requested id, set even when no actor resolved.
	ActorID string
	Actor   *world.Actor
	// Token is the actor's presence on the active scene, if any.
	Token *world.Token
	Scene *world.Scene
}

// Present reports whether the target has a token on the active scene.
func (t Target) Present() bool {
	return t.Actor != nil && t.Token != nil
}

// Context is everything one invocation may see and do.
type Context struct {
	Slot   string
	Actor  *world.Actor
	Token  *world.Token
	Scene  *world.Scene
	User   world.User
	Args   map[string]any
	Notify notify.Sink
	World  world.Writer
	Log    func(msg string)
}

// Builder reads the world to resolve requests.
type Builder struct {
	dir world.Directory
}

// NewBuilder creates a Builder over dir.
func NewBuilder(dir world.Directory) *Builder {
	return &Builder{dir: dir}
}

// Resolve finds the target actor and its presence-proxy.
//
// The actor id comes from req.ActorID, then the actorId/actorID/actor_id
// arguments. Without one, a tokenId/token_id argument naming a token on the
// active scene selects that token and its actor. The presence-proxy is the
// first token on the active scene for the actor, in the scene's stored
// order.
func (b *Builder) Resolve(req core.Request) Target {
	var t Target
	scene, hasScene := b.dir.ActiveScene()
	if hasScene {
		t.Scene = &scene
	}

	t.ActorID = strings.TrimSpace(req.ActorID)
	if t.ActorID == "" {
		t.ActorID = stringArg(req.Args, actorKeys)
	}

	if t.ActorID == "" {
		tokenID := stringArg(req.Args, tokenKeys)
		if tokenID == "" || !hasScene {
			return t
		}
		tok, ok := b.dir.Token(scene.ID, tokenID)
		if !ok || tok.ActorID == "" {
			return t
		}
		t.ActorID = tok.ActorID
		if a, ok := b.dir.Actor(tok.ActorID); ok {
			t.Actor = &a
			t.Token = &tok
		}
		return t
	}

	a, ok := b.dir.Actor(t.ActorID)
	if !ok {
		return t
	}
	t.Actor = &a
	if hasScene {
		for _, tok := range scene.Tokens {
			if tok.ActorID == a.ID {
				tok := tok
				t.Token = &tok
				break
			}
		}
	}
	return t
}

// Build assembles the invocation context. Args are copied.
func (b *Builder) Build(req core.Request, target Target, sink notify.Sink, w world.Writer) *Context {
	user, ok := b.dir.User(req.UserID)
	if !ok {
		user = world.User{ID: req.UserID}
	}
	return &Context{
		Slot:   req.Slot,
		Actor:  target.Actor,
		Token:  target.Token,
		Scene:  target.Scene,
		User:   user,
		Args:   copyArgs(req.Args),
		Notify: sink,
		World:  w,
	}
}

// Bindings adapts the context to the Lua host interface.
func (c *Context) Bindings() compiler.Bindings {
	b := compiler.Bindings{
		Args: c.Args,
		User: map[string]any{
			"id":   c.User.ID,
			"name": c.User.Name,
			"role": string(c.User.Role),
			"isGM": c.User.IsGM(),
		},
		Log: c.Log,
	}
	if c.Actor != nil {
		b.Actor = map[string]any{
			"id":   c.Actor.ID,
			"name": c.Actor.Name,
			"type": c.Actor.Type,
			"data": c.Actor.Data,
		}
	}
	if c.Token != nil {
		b.Token = map[string]any{
			"id":      c.Token.ID,
			"name":    c.Token.Name,
			"actorId": c.Token.ActorID,
			"sceneId": c.Token.SceneID,
			"x":       c.Token.X,
			"y":       c.Token.Y,
		}
	}
	if c.Scene != nil {
		b.Scene = map[string]any{"id": c.Scene.ID, "name": c.Scene.Name}
	}
	if c.Notify != nil {
		b.Notify = func(msg, level string) {
			c.Notify.Notify(context.Background(), notify.Notification{
				Slot:    c.Slot,
				UserID:  c.User.ID,
				Level:   notify.ParseLevel(level),
				Message: msg,
			})
		}
	}
	if c.World != nil {
		b.Chat = func(ctx context.Context, text string) error {
			return c.World.PostChat(ctx, c.User.ID, text)
		}
		b.UpdateActor = c.World.UpdateActor
	}
	return b
}

func stringArg(args map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := args[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func copyArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyArgs(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
