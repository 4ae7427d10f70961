package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role accepted by the admin API
const RoleAdmin = "admin"

// AdminClaims are the JWT claims carried by admin API bearer tokens
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
