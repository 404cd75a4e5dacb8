package models

import "time"

// Session is the authenticated state of a client instance.
//
// A Session is replaced wholesale on login and logout and never mutated in place.
type Session struct {
	Credential  string
	DisplayName string
	AvatarURL   *string
	CreatedAt   time.Time
}

// NewSession builds a Session; an empty avatar is stored as nil.
func NewSession(credential, displayName, avatarURL string) *Session {
	s := &Session{
		Credential:  credential,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	if avatarURL != "" {
		s.AvatarURL = &avatarURL
	}
	return s
}

// Valid reports whether the session carries a credential.
func (s *Session) Valid() bool {
	return s != nil && s.Credential != ""
}

// Avatar returns the avatar url or "".
func (s *Session) Avatar() string {
	if s == nil || s.AvatarURL == nil {
		return ""
	}
	return *s.AvatarURL
}
