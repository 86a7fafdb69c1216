package entity

import "time"

// SuspicionRecord holds behavioral counters for one IP or one email.
// Emails is only populated for IP records.
type SuspicionRecord struct {
	WindowStart time.Time `json:"window_start"`
	Count       int       `json:"count"`
	Emails      []string  `json:"emails,omitempty"`
	Score       int       `json:"score"`
}

// AddEmail records email as seen in the current window.
func (r *SuspicionRecord) AddEmail(email string) {
	if email == "" {
		return
	}
	for _, e := range r.Emails {
		if e == email {
			return
		}
	}
	r.Emails = append(r.Emails, email)
}

// LockRecord blocks an IP or email until UnlockAt.
type LockRecord struct {
	UnlockAt time.Time `json:"unlock_at"`
}
