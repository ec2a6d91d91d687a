package model

// DefaultUserID owns orders created without an explicit user
const DefaultUserID int64 = 1

// UserSummary is the subset of a user embedded in other resources
type UserSummary struct {
	Username  string `json:"username" db:"username"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
}
