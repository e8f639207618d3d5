package models

import "time"

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// IsValidRole reports whether role is one of the known role tags.
func IsValidRole(role string) bool {
	switch role {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is the per-username role record. Username is always lowercased.
type User struct {
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Address is the shipping contact stored per username.
type Address struct {
	Name      string    `json:"name" binding:"required"`
	Phone     string    `json:"phone" binding:"required"`
	Address   string    `json:"address" binding:"required"`
	Province  string    `json:"province,omitempty"`
	Country   string    `json:"country,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
