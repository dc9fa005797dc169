package model

import "time"

// Session is the server-side record behind a login token.
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// IdleExpired reports whether the session has been idle longer than ttl at now.
func (s *Session) IdleExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastSeen) > ttl
}
