package domain

// Identity is the resolved caller of a request. Account management lives
// outside this service; the session middleware only needs to know who is
// calling and whether they are still an unverified guest.
type Identity struct {
	UserID  string
	IsGuest bool
}

// RateLimitKey returns the identity string used to key the submission
// rate limiter. Submission always runs behind the session middleware,
// so a user ID is present on every call.
func (i Identity) RateLimitKey() string {
	return i.UserID
}
