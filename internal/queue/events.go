package queue

import "time"

const (
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyUserLinked     = "user.linked"
	KeyUserLoggedOut  = "user.loggedout"
)

type UserRegistered struct {
	UserID   string    `json:"user_id"`
	PublicID string    `json:"public_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Provider string    `json:"provider,omitempty"`
	At       time.Time `json:"at"`
}

type UserLoggedIn struct {
	UserID   string    `json:"user_id"`
	PublicID string    `json:"public_id"`
	Method   string    `json:"method"`
	At       time.Time `json:"at"`
}

type UserLinked struct {
	UserID   string    `json:"user_id"`
	PublicID string    `json:"public_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Provider string    `json:"provider"`
	At       time.Time `json:"at"`
}

type UserLoggedOut struct {
	UserID   string    `json:"user_id"`
	PublicID string    `json:"public_id"`
	At       time.Time `json:"at"`
}
