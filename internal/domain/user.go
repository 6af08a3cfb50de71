package domain

import "time"

// User is an account known to a self-hosted gateway backend (mongo, postgres,
// memory). The Supabase backend keeps its own users.
type User struct {
	ID           string    `bson:"_id" json:"id" db:"id"`
	Email        string    `bson:"email" json:"email" db:"email"` // Should be unique
	PasswordHash string    `bson:"passwordHash" json:"-" db:"password_hash"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt" db:"created_at"`
}
