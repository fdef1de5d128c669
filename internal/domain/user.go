package domain

import (
	"strings"
	"time"
)

// User owns routes. One process serves one current user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NameFromEmail derives a display name from the local part of an address.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

// Export is the persisted backup of a user's routes.
type Export struct {
	User       *User    `json:"user"`
	Routes     []*Route `json:"routes"`
	ExportedAt string   `json:"exportedAt"`
}
