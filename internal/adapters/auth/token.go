package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies a participant and the community they belong to. This is
// the only identity the core needs: all operations are scoped by community.
type Claims struct {
	ParticipantID string
	CommunityID   string
}

type jwtClaims struct {
	jwt.RegisteredClaims
	CommunityID string `json:"communityId"`
}

// TokenCodec issues and verifies participant tokens signed with HS256.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue signs a token for the participant scoped to the community.
func (c *TokenCodec) Issue(participantID, communityID string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		CommunityID: communityID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify parses the token and returns its claims. It rejects unexpected
// signing methods, bad signatures, and expired tokens.
func (c *TokenCodec) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return Claims{}, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" || claims.CommunityID == "" {
		return Claims{}, fmt.Errorf("token missing participant or community")
	}
	return Claims{ParticipantID: claims.Subject, CommunityID: claims.CommunityID}, nil
}
