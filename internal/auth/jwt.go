package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RolePanel is the only role issued: the local control panel
const RolePanel = "panel"

// ErrInvalidSecret is returned when the panel secret does not match
var ErrInvalidSecret = errors.New("invalid panel secret")

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates control-panel tokens
type Issuer struct {
	secret      []byte
	panelSecret string
	ttl         time.Duration
	now         func() time.Time
}

// NewIssuer creates an issuer. Tokens are HS256-signed with jwtSecret and
// granted in exchange for panelSecret.
func NewIssuer(jwtSecret, panelSecret string, ttl time.Duration) (*Issuer, error) {
	if jwtSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{
		secret:      []byte(jwtSecret),
		panelSecret: panelSecret,
		ttl:         ttl,
		now:         time.Now,
	}, nil
}

// Exchange returns a token when secret matches the configured panel secret
func (i *Issuer) Exchange(secret, clientID string) (string, error) {
	if i.panelSecret == "" || secret != i.panelSecret {
		return "", ErrInvalidSecret
	}
	return i.GenerateToken(clientID)
}

// TTL returns how long issued tokens stay valid
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// GenerateToken generates a JWT token for a panel client
func (i *Issuer) GenerateToken(clientID string) (string, error) {
	now := i.now()
	claims := &JWTClaims{
		ClientID: clientID,
		Role:     RolePanel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (i *Issuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.Role == RolePanel {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
