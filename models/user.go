package models

import (
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RolePro   Role = "pro"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePro, RoleAdmin:
		return true
	}
	return false
}

// User is a player account. The power-up inventory is kept in two flat
// columns; the API nests them under "inventory".
type User struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string          `gorm:"not null;index" json:"name"`
	Email        string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	TaxID        *string         `gorm:"column:cpf;type:varchar(14);uniqueIndex" json:"cpf,omitempty"`
	Phone        string          `gorm:"type:varchar(32)" json:"phone,omitempty"`
	PasswordHash string          `gorm:"column:password" json:"-"`
	Role         Role            `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Balance      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	Doubles      int             `gorm:"not null;default:0" json:"doubles"`
	SuperDoubles int             `gorm:"not null;default:0" json:"superDoubles"`

	Timestamps
}

func (u *User) IsPro() bool { return u.Role == RolePro }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
