package models

import "time"

// Role enumerates the workflow roles a user can hold. The set is closed:
// authorization and visibility logic must switch exhaustively over it.
type Role string

const (
	RoleSubmissor Role = "submissor"
	RoleAvaliador Role = "avaliador"
	RoleDecisor   Role = "decisor"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleSubmissor, RoleAvaliador, RoleDecisor:
		return true
	}
	return false
}

// Usuario represents an application user stored in the usuarios table.
type Usuario struct {
	ID        string    `db:"id" json:"id"`
	Nome      string    `db:"nome" json:"nome"`
	Email     string    `db:"email" json:"email"`
	SenhaHash string    `db:"senha" json:"-"`
	Tipo      Role      `db:"tipo" json:"tipo"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
