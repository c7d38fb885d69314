package session

import (
	"database/sql"
	"time"
)

// Account is the credential row behind a user: local accounts carry a
// password hash, provider accounts carry the provider's subject ID.
type Account struct {
	UID          string         `json:"uid" db:"uid"`
	Email        string         `json:"email" db:"email"`
	PasswordHash sql.NullString `json:"-" db:"password_hash"`
	Provider     string         `json:"provider" db:"provider"` // local, google
	ProviderSub  sql.NullString `json:"-" db:"provider_sub"`
	DisplayName  sql.NullString `json:"display_name" db:"display_name"`
	PhotoURL     sql.NullString `json:"photo_url" db:"photo_url"`
	Phone        sql.NullString `json:"phone" db:"phone"`
	LastLogin    sql.NullTime   `json:"last_login" db:"last_login"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// UserRecord is the profile document mirrored into the record store at
// users/{uid} on every successful authentication. Fields merge into whatever
// is already stored; polygons living under the same path are never touched.
// Absent fields are omitted rather than written as null, so a login from an
// account missing a photo or phone cannot erase one stored earlier.
type UserRecord struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	LastLogin   string  `json:"lastLogin"`
	Provider    string  `json:"provider"`
	ProviderID  string  `json:"providerId"`

	// GoogleProfile is merge-written separately and only present after a
	// provider sign-in managed to fetch extended profile data.
	GoogleProfile *GoogleProfile `json:"googleProfile,omitempty"`
}

// GoogleProfile is the extended profile block fetched from the provider's
// userinfo endpoint.
type GoogleProfile struct {
	Locale        *string `json:"locale"`
	Picture       *string `json:"picture"`
	GivenName     *string `json:"given_name"`
	FamilyName    *string `json:"family_name"`
	VerifiedEmail bool    `json:"verified_email"`
}

// HasData reports whether at least one profile field came back populated.
func (p *GoogleProfile) HasData() bool {
	return p.Locale != nil || p.Picture != nil || p.GivenName != nil || p.FamilyName != nil
}
