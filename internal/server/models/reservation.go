package models

import "time"

// Reservation holds a slug for its original owner until it expires or is
// released.
type Reservation struct {
	ID                  string
	Slug                string
	OriginalOwnerUserID string
	Reason              string
	ReservedAt          time.Time
	ExpiresAt           time.Time
	ReleasedAt          *time.Time
}
