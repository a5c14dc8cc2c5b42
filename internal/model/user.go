package model

import "time"

// Role controls what an operator account may do in the UI layer.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleAttendant Role = "attendant"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	FullName     string
	Email        *string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

type Session struct {
	ID       int64
	UserID   int64
	Token    string
	LoginAt  time.Time
	LogoutAt *time.Time
	Active   bool
}
