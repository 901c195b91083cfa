package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

type User struct {
	ID            int       `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	Role          UserRole  `json:"role" db:"role"`
	WalletBalance float64   `json:"wallet_balance" db:"wallet_balance"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	AvatarKey     *string   `json:"-" db:"avatar_key"`
	AvatarURL     *string   `json:"avatar_url,omitempty" db:"-"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
