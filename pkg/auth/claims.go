// Package auth provides JWT-based owner identity for appforge-engine.
// Tokens are issued by the platform's central auth service and verified
// against its JWKS endpoint.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// OwnerIDKey is the context key for the authenticated owner UUID.
	OwnerIDKey contextKey = "owner_id"
)

// Claims is the JWT claims structure. The subject carries the owner
// UUID; everything else is standard registered claims plus optional
// profile fields.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetOwnerID retrieves the authenticated owner UUID from the request
// context. Returns uuid.Nil and false when the request is anonymous.
func GetOwnerID(ctx context.Context) (uuid.UUID, bool) {
	ownerID, ok := ctx.Value(OwnerIDKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		return uuid.Nil, false
	}
	return ownerID, true
}
