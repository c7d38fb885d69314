// internal/pkg/session/types.go
package session

import "time"

type SessionData struct {
	JTI            string                 `json:"jti"`
	UID            string                 `json:"uid"`
	Email          string                 `json:"email"`
	Device         string                 `json:"device,omitempty"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	Provider       string                 `json:"provider"` // local, google
	LoginAt        time.Time              `json:"login_at"`
	LastActivityAt time.Time              `json:"last_activity_at"`
	ExpiresAt      time.Time              `json:"expires_at"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
