package user

import "time"

// User is the internal record for an external identity.
// Users are created lazily the first time a verified token names them and
// are never modified afterwards.
type User struct {
	ID         int64     `json:"id"`
	AuthUserID string    `json:"auth_user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
