package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer is the iss claim stamped on every session token
const TokenIssuer = "gatehouse"

// TokenManager encodes and decodes signed session tokens (HS256).
// The secret is process-wide; replacing it invalidates every outstanding token.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// SetClock overrides the time source used for expiry checks
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// Encode signs the session's claims. The token expires with the session.
func (tm *TokenManager) Encode(session *models.Session) (string, error) {
	claims := &models.TokenClaims{
		Username:  session.Username,
		SessionID: session.ID,
		ClientIP:  session.ClientIP,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    TokenIssuer,
			Subject:   session.Username,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// Decode verifies the signature, then the expiry, and returns the claims.
//
// The returned error wraps one of models.ErrTokenMalformed,
// models.ErrTokenBadSignature or models.ErrTokenExpired. On ErrTokenExpired the
// claims are still returned: the signature was verified before expiry was checked.
func (tm *TokenManager) Decode(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", models.ErrTokenBadSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return claims, fmt.Errorf("%w: %v", models.ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %v", models.ErrTokenMalformed, err)
		}
	}

	if claims.SessionID == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing session claims", models.ErrTokenMalformed)
	}

	return claims, nil
}
