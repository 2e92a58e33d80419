package session

import "errors"

// User is the authenticated shopper's profile. Optional contact fields may
// be absent in backend responses.
type User struct {
	ID             string `json:"id"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// State is the session lifecycle phase.
type State int

const (
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the session slot handed to consumers.
// User and Token are set together or not at all.
type Snapshot struct {
	User      *User
	Token     string
	State     State
	Loading   bool
	LastError string
}

// Authenticated reports whether a user is present in the snapshot.
func (s Snapshot) Authenticated() bool { return s.User != nil }

// EventType distinguishes user-presence transitions.
type EventType int

const (
	EventSignedIn EventType = iota
	EventSignedOut
)

// Event notifies subscribers of a user-presence change.
type Event struct {
	Type EventType
	User *User
}

var (
	ErrNoSession = errors.New("session: no active session")
)

// persisted is the single serialized session blob kept in the credential
// store under StorageKey.
type persisted struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// StorageKey is the credential-store key holding the serialized session.
const StorageKey = "tienda.session"
