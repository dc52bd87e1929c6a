package models

// User is the identity returned by the auth endpoints.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Session is the persisted credential record. Empty strings mean absent.
type Session struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Name         string `json:"name"`
	Email        string `json:"email"`
}

// IsAuthenticated reports whether an access token is held.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// SessionFromAuth builds a session from an auth response.
func SessionFromAuth(resp *AuthResponse) Session {
	return Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Name:         resp.User.Name,
		Email:        resp.User.Email,
	}
}
