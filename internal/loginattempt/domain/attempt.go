package domain

import "time"

// Attempt is the rolling failure counter for one (email, device) pair
// (table login_attempt). Records are created lazily on the first failed
// sign-in for a pair and deleted on success or by the reaper.
type Attempt struct {
	ID            int64
	Email         string
	DeviceID      string
	Attempts      int
	LastAttemptAt time.Time
}
