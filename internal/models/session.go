package models

// SessionID is the opaque token minted by analyze-image and threaded
// through every later backend call of the same workflow run
type SessionID string

// IsZero reports whether no session has been established
func (s SessionID) IsZero() bool {
	return s == ""
}

func (s SessionID) String() string {
	return string(s)
}
