package models

import "time"

// Customer represents a registered shopper.
type Customer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterForm holds the /registrar form fields.
type RegisterForm struct {
	Name     string `form:"nome"`
	Email    string `form:"email"`
	Password string `form:"senha"`
	Phone    string `form:"telefone"`
}

// LoginForm holds the /login form fields.
type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"senha"`
}
