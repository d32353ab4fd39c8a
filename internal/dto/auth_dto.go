package dto

import "time"

type LoginRequestDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AdminLoginRequestDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	AdminKey string `json:"adminKey" binding:"required"`
}

type RegisterRequestDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
}

type RefreshRequestDTO struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type UserDTO struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponseDTO is returned by login, admin login and register.
type AuthResponseDTO struct {
	Token        string  `json:"token"`
	RefreshToken string  `json:"refreshToken"`
	User         UserDTO `json:"user"`
}

// RefreshResponseDTO carries the rotated token pair.
type RefreshResponseDTO struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}
