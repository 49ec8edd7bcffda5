package world

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownActor is returned by UpdateActor for an id not in the world.
var ErrUnknownActor = errors.New("unknown actor")

// Directory is the read side of the world.
type Directory interface {
	Actor(id string) (Actor, bool)
	User(id string) (User, bool)
	ActiveScene() (Scene, bool)
	Token(sceneID, tokenID string) (Token, bool)
	Permission(userID, actorID string) Level
}

// Writer is the write side scripts reach through their context.
type Writer interface {
	UpdateActor(ctx context.Context, id string, patch map[string]any) error
	PostChat(ctx context.Context, userID, text string) error
}

// Document is the YAML shape of a world.
type Document struct {
	Users  []User  `yaml:"users"`
	Actors []Actor `yaml:"actors"`
	Scenes []Scene `yaml:"scenes"`
}

// State is an in-memory world. It is safe for concurrent use; every read
// returns a copy.
type State struct {
	mu     sync.RWMutex
	users  map[string]User
	actors map[string]Actor
	scenes []Scene
	chat   []ChatMessage
}

var (
	_ Directory = (*State)(nil)
	_ Writer    = (*State)(nil)
)

// New builds a State from a document, rejecting duplicate ids and more than
// one active scene.
func New(doc Document) (*State, error) {
	s := &State{
		users:  make(map[string]User, len(doc.Users)),
		actors: make(map[string]Actor, len(doc.Actors)),
	}
	for _, u := range doc.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("user %q has no id", u.Name)
		}
		if _, dup := s.users[u.ID]; dup {
			return nil, fmt.Errorf("duplicate user id %q", u.ID)
		}
		if u.Role == "" {
			u.Role = RolePlayer
		}
		s.users[u.ID] = u
	}
	for _, a := range doc.Actors {
		if a.ID == "" {
			return nil, fmt.Errorf("actor %q has no id", a.Name)
		}
		if _, dup := s.actors[a.ID]; dup {
			return nil, fmt.Errorf("duplicate actor id %q", a.ID)
		}
		s.actors[a.ID] = a.clone()
	}
	active := ""
	seen := make(map[string]bool)
	for _, sc := range doc.Scenes {
		if sc.ID == "" {
			return nil, fmt.Errorf("scene %q has no id", sc.Name)
		}
		if seen[sc.ID] {
			return nil, fmt.Errorf("duplicate scene id %q", sc.ID)
		}
		seen[sc.ID] = true
		if sc.Active {
			if active != "" {
				return nil, fmt.Errorf("scenes %q and %q are both active", active, sc.ID)
			}
			active = sc.ID
		}
		sc = sc.clone()
		for i := range sc.Tokens {
			sc.Tokens[i].SceneID = sc.ID
		}
		s.scenes = append(s.scenes, sc)
	}
	return s, nil
}

// Parse decodes a YAML world document.
func Parse(data []byte) (*State, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse world: %w", err)
	}
	return New(doc)
}

// Load reads a YAML world document from path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world: %w", err)
	}
	return Parse(data)
}

// Actor returns a copy of the actor with id.
func (s *State) Actor(id string) (Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return Actor{}, false
	}
	return a.clone(), true
}

// User returns the user with id.
func (s *State) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Users returns all users ordered by id.
func (s *State) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetActive marks a user as connected or not.
func (s *State) SetActive(userID string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false
	}
	u.Active = active
	s.users[userID] = u
	return true
}

// ActiveScene returns a copy of the active scene.
func (s *State) ActiveScene() (Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.scenes {
		if sc.Active {
			return sc.clone(), true
		}
	}
	return Scene{}, false
}

// Activate makes sceneID the only active scene.
func (s *State) Activate(sceneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.scenes {
		s.scenes[i].Active = s.scenes[i].ID == sceneID
		found = found || s.scenes[i].Active
	}
	return found
}

// Token looks up a token on a scene.
func (s *State) Token(sceneID, tokenID string) (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.scenes {
		if sc.ID != sceneID {
			continue
		}
		for _, t := range sc.Tokens {
			if t.ID == tokenID {
				return t, true
			}
		}
	}
	return Token{}, false
}

// Permission returns the level userID holds on actorID. Game masters own
// every actor; unknown users and actors get LevelNone.
func (s *State) Permission(userID, actorID string) Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return LevelNone
	}
	a, ok := s.actors[actorID]
	if !ok {
		return LevelNone
	}
	if u.IsGM() {
		return LevelOwner
	}
	if l, ok := a.Ownership[userID]; ok {
		return l
	}
	return a.Default
}

// UpdateActor merges patch into the actor. The "name" key renames the
// actor; every other key is written into Data. A nil value deletes the key.
func (s *State) UpdateActor(_ context.Context, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actors[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, id)
	}
	if a.Data == nil {
		a.Data = make(map[string]any)
	}
	for k, v := range patch {
		if k == "name" {
			if name, ok := v.(string); ok {
				a.Name = name
				continue
			}
		}
		if v == nil {
			delete(a.Data, k)
			continue
		}
		a.Data[k] = cloneValue(v)
	}
	s.actors[id] = a
	return nil
}

// PostChat appends a chat line.
func (s *State) PostChat(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, ChatMessage{UserID: userID, Text: text})
	return nil
}

// Chat returns the chat log, oldest first.
func (s *State) Chat() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatMessage(nil), s.chat...)
}
