package model

import "time"

type User struct {
	ID            int64      `db:"id"`
	PhoneNumber   string     `db:"phone_number"`
	IsActive      bool       `db:"is_active"`
	IsBlacklisted bool       `db:"is_blacklisted"`
	PreferredDay  *int       `db:"preferred_day"`
	PreferredHour *int       `db:"preferred_hour"`
	LastQuestion  *int64     `db:"last_question_id"`
	LastMessageAt *time.Time `db:"last_message_sent"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Preferences is the weekly delivery slot chosen by a user.
type Preferences struct {
	Day  int
	Hour int
}
