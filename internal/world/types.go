package world

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is an ownership permission level on an actor.
type Level int

const (
	LevelNone     Level = 0
	LevelLimited  Level = 1
	LevelObserver Level = 2
	LevelOwner    Level = 3
)

var levelNames = map[Level]string{
	LevelNone:     "NONE",
	LevelLimited:  "LIMITED",
	LevelObserver: "OBSERVER",
	LevelOwner:    "OWNER",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel accepts a level name (case-insensitive) or its number.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(LevelNone) || n > int(LevelOwner) {
			return LevelNone, fmt.Errorf("ownership level %d out of range", n)
		}
		return Level(n), nil
	}
	for l, name := range levelNames {
		if strings.EqualFold(name, s) {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("unknown ownership level %q", s)
}

// UnmarshalYAML lets documents write levels as OWNER or 3.
func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: ownership level must be a scalar", node.Line)
	}
	v, err := ParseLevel(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*l = v
	return nil
}

// MarshalYAML writes the level name.
func (l Level) MarshalYAML() (any, error) {
	return l.String(), nil
}

// Role is a user's role in the game.
type Role string

const (
	RolePlayer    Role = "player"
	RoleTrusted   Role = "trusted"
	RoleAssistant Role = "assistant"
	RoleGM        Role = "gamemaster"
)

// User is a participant identity.
type User struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Role   Role   `yaml:"role" json:"role"`
	Active bool   `yaml:"active" json:"active"`
}

// IsGM reports whether the user holds game master rights.
func (u User) IsGM() bool {
	return u.Role == RoleGM || u.Role == RoleAssistant
}

// Actor is a domain entity a script may act on.
type Actor struct {
	ID   string         `yaml:"id" json:"id"`
	Name string         `yaml:"name" json:"name"`
	Type string         `yaml:"type" json:"type"`
	Data map[string]any `yaml:"data,omitempty" json:"data,omitempty"`

	// Ownership maps user id to level; Default applies to everyone else.
	Ownership map[string]Level `yaml:"ownership,omitempty" json:"-"`
	Default   Level            `yaml:"default,omitempty" json:"-"`
}

func (a Actor) clone() Actor {
	a.Data = cloneMap(a.Data)
	if a.Ownership != nil {
		own := make(map[string]Level, len(a.Ownership))
		for k, v := range a.Ownership {
			own[k] = v
		}
		a.Ownership = own
	}
	return a
}

// Token places an actor on a scene.
type Token struct {
	ID      string  `yaml:"id" json:"id"`
	Name    string  `yaml:"name" json:"name"`
	ActorID string  `yaml:"actor" json:"actorId"`
	SceneID string  `yaml:"-" json:"sceneId"`
	X       float64 `yaml:"x" json:"x"`
	Y       float64 `yaml:"y" json:"y"`
}

// Scene is a map with tokens in stored order.
type Scene struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Active bool    `yaml:"active" json:"active"`
	Tokens []Token `yaml:"tokens,omitempty" json:"tokens,omitempty"`
}

func (s Scene) clone() Scene {
	s.Tokens = append([]Token(nil), s.Tokens...)
	return s
}

// ChatMessage is one posted chat line.
type ChatMessage struct {
	UserID string `json:"user"`
	Text   string `json:"text"`
}

// cloneMap copies nested maps and slices so callers never share structure.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
