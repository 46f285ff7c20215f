package model

import "time"

// Profile is a player's public identity and rating
type Profile struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	Points    int       `json:"points"`
	IsGuest   bool      `json:"isGuest"` // true for accounts created without credentials
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials holds login data for a registered profile
// Stored separately so the password hash never travels with the profile
type Credentials struct {
	UID          string    `json:"uid"`
	Username     string    `json:"username"` // login username (immutable)
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Binding maps a live connection to its identity and current game
type Binding struct {
	ConnectionID ConnectionID `json:"connectionId"`
	GameID       GameID       `json:"gameId"` // Empty while not seated
	UID          string       `json:"uid"`
	IsGuest      bool         `json:"isGuest"`
}
