package domain

import "time"

// Token is one issued bearer token (table jwt). At most one row per user has
// Enabled true at any instant; superseded tokens are disabled, not deleted,
// and removed later by the reaper.
type Token struct {
	ID        int64
	Value     string
	ExpiredAt time.Time
	Enabled   bool
	UserID    int64
}
