package models

import (
	"time"
)

// User profile as the backend returns it
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"creationAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
