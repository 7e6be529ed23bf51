package domain

import "time"

// OTPChallenge is the single outstanding passcode for a phone number.
// SubjectID is the identity an OTP login is issued for: the owning account
// when one exists, otherwise a phone-only identity that survives re-issues.
// Code and ExpiresAt are zero once the challenge has been consumed.
type OTPChallenge struct {
	PhoneNumber string
	SubjectID   string
	Code        string
	ExpiresAt   time.Time
}
