package models

import "time"

const CapabilitySecurityAdmin = "SECURITY_ADMIN"

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  *string   `json:"display_name,omitempty" db:"display_name"`
	Capabilities []string  `json:"capabilities" db:"capabilities"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HasCapability reports whether the user holds the named permission grant.
func (u *User) HasCapability(name string) bool {
	for _, c := range u.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
