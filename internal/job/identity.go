package job

// IdentityKind tells whether the watched job id came from the client or
// the server
type IdentityKind int

const (
	IdentityNone IdentityKind = iota
	IdentityProvisional
	IdentityConfirmed
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityProvisional:
		return "provisional"
	case IdentityConfirmed:
		return "confirmed"
	}
	return "none"
}

// Identity is the job id the machine watches on every poll. A provisional
// identity is the local placeholder assigned when the client issues a start;
// it only becomes confirmed through Confirm.
type Identity struct {
	kind IdentityKind
	id   string
}

// None returns the empty identity
func None() Identity { return Identity{} }

// Provisional returns a client-assigned identity
func Provisional(localID string) Identity {
	if localID == "" {
		return None()
	}
	return Identity{kind: IdentityProvisional, id: localID}
}

// Confirmed returns a server-assigned identity
func Confirmed(serverID string) Identity {
	if serverID == "" {
		return None()
	}
	return Identity{kind: IdentityConfirmed, id: serverID}
}

// Confirm replaces the identity with the server's id. An empty serverID
// leaves the identity unchanged.
func (i Identity) Confirm(serverID string) Identity {
	if serverID == "" {
		return i
	}
	return Confirmed(serverID)
}

func (i Identity) Kind() IdentityKind { return i.kind }
func (i Identity) ID() string         { return i.id }
func (i Identity) IsNone() bool       { return i.kind == IdentityNone }
func (i Identity) IsProvisional() bool {
	return i.kind == IdentityProvisional
}
func (i Identity) IsConfirmed() bool { return i.kind == IdentityConfirmed }

// Matches returns true if startedAt is this identity's id
func (i Identity) Matches(startedAt string) bool {
	return i.kind != IdentityNone && startedAt != "" && i.id == startedAt
}

func (i Identity) String() string {
	if i.kind == IdentityNone {
		return "none"
	}
	return i.kind.String() + ":" + i.id
}
