package models

import "time"

// Session binds a browser cookie to a Pi identity verified at login.
type Session struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity is what the payment provider reports for an access token.
type Identity struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}
