package model

import "time"

// User is an account that can sign in. Role is one of the rbac roles.
type User struct {
	ID           int
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
