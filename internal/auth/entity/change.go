package entity

// ChangeKind names the mutation that produced a SessionChange.
type ChangeKind string

const (
	// ChangeRestored is emitted once Load finishes, whether a session was found or not.
	ChangeRestored ChangeKind = "restored"
	// ChangeAuthenticated is emitted by SetAuth.
	ChangeAuthenticated ChangeKind = "authenticated"
	// ChangeTokensRotated is emitted by UpdateTokens.
	ChangeTokensRotated ChangeKind = "tokens_rotated"
	// ChangeCleared is emitted when an authenticated session is dropped.
	ChangeCleared ChangeKind = "cleared"
)

func (k ChangeKind) String() string {
	return string(k)
}

// SessionChange is delivered to store subscribers after every mutation.
type SessionChange struct {
	Kind    ChangeKind
	Session Session
}
