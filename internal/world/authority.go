package world

// Authority decides whether this process is the primary game master, the
// only one allowed to act on remote run requests.
type Authority struct {
	state *State
	local string
}

// NewAuthority binds the authority check to the local user id.
func NewAuthority(state *State, localUserID string) *Authority {
	return &Authority{state: state, local: localUserID}
}

// LocalUser returns the id the process runs as.
func (a *Authority) LocalUser() string {
	return a.local
}

// IsPrimary reports whether the local user is a game master and the first
// active game master by id. With several GMs connected exactly one process
// answers true.
func (a *Authority) IsPrimary() bool {
	primary, ok := a.state.PrimaryGM()
	return ok && primary.ID == a.local
}

// PrimaryGM returns the active game master with the lowest id.
func (s *State) PrimaryGM() (User, bool) {
	for _, u := range s.Users() {
		if u.Active && u.IsGM() {
			return u, true
		}
	}
	return User{}, false
}
