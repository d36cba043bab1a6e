package domain

import "time"

type User struct {
	UserID       string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created"`
}

// Friend is a user as seen from another user's contact list.
type Friend struct {
	UserID   string         `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Status   PresenceStatus `json:"status"`
}

type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Vericode string `json:"vericode" validate:"required,len=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CodeLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}
