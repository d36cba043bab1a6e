package domain

import "time"

// VerificationCode is the single live one-time code for an email address.
// Attempts counts failed verifications since the code was issued.
type VerificationCode struct {
	Email    string
	Code     string
	IssuedAt time.Time
	Attempts int
}

// ExpiresAt returns the instant after which the code is no longer usable.
func (v *VerificationCode) ExpiresAt(ttl time.Duration) time.Time {
	return v.IssuedAt.Add(ttl)
}
