package profiles

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public view of an account. It shares its id with the
// credential row created at registration.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Registration string    `json:"registration"`
	Role         string    `json:"role"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpdateProfileRequest carries the self-editable profile fields. Role and
// registration are assigned at signup and cannot be changed here.
type UpdateProfileRequest struct {
	Name string `json:"name"`
}

// ListQuery holds the optional roster filter.
type ListQuery struct {
	Search string
}
