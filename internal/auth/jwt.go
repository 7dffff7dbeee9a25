package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken wraps every validation failure. The jwt sentinel errors
// such as jwt.ErrTokenExpired stay reachable through errors.Is.
var ErrInvalidToken = errors.New("invalid token")

// clockSkew tolerates small drift between this service and the issuer.
const clockSkew = 30 * time.Second

// Claims carries the caller's identity. Tokens from the identity service may
// identify the user only through the standard subject claim.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager validates HS256 access tokens issued by the identity service.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	parser    *jwt.Parser
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secretKey: []byte(secret),
		ttl:       ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// GenerateToken signs a token for userID. Operator tooling and tests use it;
// end-user login lives in the identity service.
func (tm *TokenManager) GenerateToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secretKey)
}

// ValidateToken verifies signature and expiry and resolves the user ID.
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, err := tm.parser.ParseWithClaims(tokenString, claims, tm.key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.UserID == uuid.Nil && claims.Subject != "" {
		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
		}
		claims.UserID = id
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}

func (tm *TokenManager) key(*jwt.Token) (any, error) {
	return tm.secretKey, nil
}
