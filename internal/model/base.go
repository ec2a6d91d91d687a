package model

import (
	"time"
)

// Base contains the fields the database fills in for every row
type Base struct {
	ID              int64     `json:"id" db:"id"`
	DateCreated     time.Time `json:"date_created" db:"date_created"`
	DateLastUpdated time.Time `json:"date_last_updated" db:"date_last_updated"`
}
