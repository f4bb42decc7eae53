package model

import "time"

// User roles as stored in users.role and carried in the JWT "role" claim.
const (
	RoleAdmin     = "ADMIN"     // platform administrator
	RoleEncargado = "ENCARGADO" // lab manager / reviewer
	RoleUsuario   = "USUARIO"   // regular requester
)

// User mirrors the users table.  Only the password hash is stored.
// Deactivated accounts keep their rows; IsActive false blocks login and is
// toggled by administrators.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
