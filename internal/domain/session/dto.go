package session

import "time"

// RegisterRequest for email/password sign-up
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Name      string `json:"name" binding:"required"`
	Device    string `json:"device"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest for email/password login
type LoginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	Device    string `json:"device"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// GoogleSignInRequest carries either an authorization code from the redirect
// flow or an access token the popup flow already holds.
type GoogleSignInRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
	AccessToken string `json:"access_token"`
	Device      string `json:"device"`
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}

// ChangePasswordRequest for updating a local account's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// LoginResponse successful authentication response
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionInfo `json:"user"`
}

// SessionInfo is the current-session view handed to every page.
type SessionInfo struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Provider    string `json:"provider"`
}
