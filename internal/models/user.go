package models

import "time"

// User is a local identity record provisioned on first federated login.
// The username is the subject identifier extracted from the SAML assertion
// and is never mutated once the row exists.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
