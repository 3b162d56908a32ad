package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the bearer token payload issued by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies who performs a mutation and from where.
type Actor struct {
	ID        string
	Role      UserRole
	IPAddress string
	UserAgent string
}

// Valid reports whether the actor carries an identity.
func (a Actor) Valid() bool {
	return a.ID != ""
}
