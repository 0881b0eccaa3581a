package transport

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by a broker password token
type TokenClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// TokenMinter creates HS256 tokens used as the MQTT password
type TokenMinter struct {
	secretKey []byte
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenMinter creates a minter from config
func NewTokenMinter(config *JWTConfig) *TokenMinter {
	return &TokenMinter{
		secretKey: []byte(config.Secret),
		issuer:    config.Issuer,
		audience:  config.Audience,
		ttl:       config.TTL,
		now:       time.Now,
	}
}

// Mint creates a token for clientID, valid for the configured TTL.
// The client ID doubles as the subject.
func (m *TokenMinter) Mint(clientID string) (string, error) {
	now := m.now()

	claims := TokenClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return tokenString, nil
}
