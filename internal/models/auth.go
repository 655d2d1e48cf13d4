package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole is the role claim issued by the HR application.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleHR       UserRole = "HR"
	RoleManager  UserRole = "MANAGER"
	RoleEmployee UserRole = "EMPLOYEE"
)

// JWTClaims represents the access token payload shared with the HR application.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	EmployeeID string   `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of an export along with the raw
// bearer token that is forwarded to the attendance backend.
type Principal struct {
	Claims *JWTClaims
	Token  string
}
