package core

// Slot is a named, persisted script definition.
type Slot struct {
	Name          string `json:"name" yaml:"name"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Code          string `json:"code" yaml:"code"`
	Note          string `json:"note,omitempty" yaml:"note,omitempty"`
	PlayersCanRun *bool  `json:"playersCanRun,omitempty" yaml:"playersCanRun,omitempty"`
	UpdatedAt     int64  `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"` // unix millis
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	if s.PlayersCanRun != nil {
		v := *s.PlayersCanRun
		s.PlayersCanRun = &v
	}
	return s
}

// Key returns the identity key of the slot name.
func (s Slot) Key() string {
	return NameKey(s.Name)
}

// Origin records how a request reached the engine.
type Origin string

const (
	// OriginLocal is a direct call inside the privileged process.
	OriginLocal Origin = "local"
	// OriginRemote is a request received over the relay channel.
	OriginRemote Origin = "remote"
)

// Request is one attempt to run a slot.
type Request struct {
	Slot    string         `json:"slot"`
	Args    map[string]any `json:"args,omitempty"`
	UserID  string         `json:"user_id"`
	ActorID string         `json:"actor_id,omitempty"` // explicit authorization target; falls back to Args
	Origin  Origin         `json:"origin,omitempty"`
}

// Bool returns a pointer to b, for optional slot fields.
func Bool(b bool) *bool {
	return &b
}
