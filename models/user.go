package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleStaff    UserRole = "staff"
	RoleAdmin    UserRole = "admin"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleAdmin
}

// IsStaff is true for staff and admin, the roles that operate the restaurant
func (r UserRole) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string     `json:"name" gorm:"not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Role         UserRole   `json:"role" gorm:"not null;default:'customer'"`
	Phone        string     `json:"phone"`
	Addresses    []Address  `json:"addresses" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Active       bool       `json:"active" gorm:"not null"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Address is embedded in a user's profile. Position keeps the list ordered.
type Address struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string `json:"-" gorm:"index;not null;type:varchar(36)"`
	Street     string `json:"street" gorm:"not null"`
	City       string `json:"city" gorm:"not null"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
	Position   int    `json:"-"`
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser builds an active customer account. passwordHash must already be hashed.
func NewUser(name, email, passwordHash, phone string) *User {
	return &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         RoleCustomer,
		Phone:        strings.TrimSpace(phone),
		Active:       true,
	}
}

// AddAddress appends a to list keeping exactly one default.
// The first address is always the default; a later address marked default
// takes the flag from whichever address held it.
func AddAddress(list []Address, a Address) []Address {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	out := make([]Address, 0, len(list)+1)
	out = append(out, list...)
	if len(out) == 0 {
		a.IsDefault = true
	} else if a.IsDefault {
		clearDefault(out)
	}
	out = append(out, a)
	return renumber(out)
}

// SetDefaultAddress moves the default flag to the address with the given id.
func SetDefaultAddress(list []Address, id string) ([]Address, bool) {
	idx := indexOfAddress(list, id)
	if idx < 0 {
		return list, false
	}
	out := append([]Address(nil), list...)
	clearDefault(out)
	out[idx].IsDefault = true
	return out, true
}

// RemoveAddress deletes the address with the given id. If it was the default,
// the first remaining address inherits the flag.
func RemoveAddress(list []Address, id string) ([]Address, bool) {
	idx := indexOfAddress(list, id)
	if idx < 0 {
		return list, false
	}
	wasDefault := list[idx].IsDefault
	out := make([]Address, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	if wasDefault && len(out) > 0 {
		clearDefault(out)
		out[0].IsDefault = true
	}
	return renumber(out), true
}

// DefaultAddress returns the default address, if any
func DefaultAddress(list []Address) (Address, bool) {
	for _, a := range list {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

func indexOfAddress(list []Address, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func clearDefault(list []Address) {
	for i := range list {
		list[i].IsDefault = false
	}
}

func renumber(list []Address) []Address {
	for i := range list {
		list[i].Position = i
	}
	return list
}
