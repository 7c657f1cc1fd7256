package entity

// User is the account the backend returned on a verify step. It is replaced
// wholesale and never edited in place.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IsZero reports whether u carries no identity.
func (u User) IsZero() bool {
	return u.ID == ""
}

// TokenPair holds the opaque access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsComplete reports whether both tokens are present.
func (t TokenPair) IsComplete() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// Session is the in-memory authentication state. User and Tokens are either
// both set or both nil.
type Session struct {
	User   *User
	Tokens *TokenPair
}

// IsAuthenticated reports whether the session holds a user and both tokens.
func (s Session) IsAuthenticated() bool {
	return s.User != nil && !s.User.IsZero() && s.Tokens != nil && s.Tokens.IsComplete()
}

// Clone returns a deep copy so callers cannot mutate store state.
func (s Session) Clone() Session {
	var out Session
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Tokens != nil {
		t := *s.Tokens
		out.Tokens = &t
	}
	return out
}
