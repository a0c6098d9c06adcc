package models

import "time"

// User represents a registered account
type User struct {
	UserID       string    `json:"userId" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"` // bcrypt hash (never in JSON)
	Avatar       string    `json:"avatar,omitempty" dynamodbav:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// RegisterRequest represents registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,excludes=@"` // "@" is reserved for email logins
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Avatar   string `json:"avatar" validate:"omitempty,max=2048"`
}

// LoginRequest represents login request payload
type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// RegisterResponse confirms a registration
type RegisterResponse struct {
	Message string `json:"message"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}
