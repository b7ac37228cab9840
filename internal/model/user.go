package model

import "github.com/google/uuid"

const (
	RoleAdministrator = "Administrador"
	RoleManager       = "Gestor"
	RoleFiscal        = "Fiscal"
)

type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAdministrator() bool { return p.HasRole(RoleAdministrator) }
func (p Principal) IsFiscal() bool        { return p.HasRole(RoleFiscal) }
