package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginSession is one record of an authenticated login. It is distinct from
// the cookie-backed transport session that carries its identifier.
type LoginSession struct {
	ID             uuid.UUID `json:"id" example:"a1b2c3d4-e5f6-7890-1234-567890abcdef"`
	OwnerID        int64     `json:"owner_id" example:"42"`
	Persistent     bool      `json:"persistent" example:"true"`
	IPAddress      string    `json:"ip_address" example:"198.51.100.10"`
	UserAgent      string    `json:"user_agent" example:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) ..."`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}
