package domain

import "time"

// Code is one issued validation code (table validation). A user has a single
// active slot shared by the activation and password-reset flows; issuing a new
// code for either purpose disables the previous one.
type Code struct {
	ID        int64
	Code      string
	ExpiredAt time.Time
	Enabled   bool
	UserID    int64
}
