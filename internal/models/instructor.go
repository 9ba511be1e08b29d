package models

import "time"

// AuthorizedInstructor is a whitelist entry gating who may submit a report.
type AuthorizedInstructor struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorFilter captures filtering criteria for listing whitelist entries.
type InstructorFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
