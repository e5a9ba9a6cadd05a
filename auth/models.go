package auth

import (
	"time"

	"github.com/google/uuid"
)

// Roles assigned to a profile at registration. The role is the coarse
// permission classifier for the whole application: librarians get full
// access, students get the catalog and their own profile and loans.
const (
	RoleLibrarian = "librarian"
	RoleStudent   = "student"
)

// Account represents a signed-up principal: the credential row plus the
// profile fields created alongside it. The hashed password is never
// serialized.
type Account struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Registration   string    `json:"registration"`
	Role           string    `json:"role"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
