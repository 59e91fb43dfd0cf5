package user

import "time"

// User mirrors the profile row owned by the auth service. Read-only here.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"` // UUID from auth.users
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName is the username, else the email, else "".
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
