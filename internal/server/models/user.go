// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the stored identity record. TokenVersion starts at 0 and only
// ever grows; every issued token embeds the version current at issuance
// and becomes invalid once the stored value moves past it.
type User struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Tier         int64     `db:"tier"`
	TokenVersion int64     `db:"token_version"`
	PasswordHash string    `db:"password"`
	CreatedAt    time.Time `db:"created_date_time"`
	ModifiedAt   time.Time `db:"modified_date_time"`
}

// UserUpdate enumerates the mutable user columns. Nil fields are left
// untouched; the repository never builds column lists from request input.
type UserUpdate struct {
	Name         *string
	Email        *string
	Tier         *int64
	PasswordHash *string
}
