// Package auth issues and verifies the bearer tokens used by the blog API
// and keeps the set of tokens revoked by logout.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failure reasons.  Expired and invalid are distinct so the
// HTTP layer can answer 401 and 403 respectively.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the payload of an access token.
type Claims struct {
	UserID uint64 `json:"userId"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens with a process-wide secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue returns a signed token for userID that expires after ttl.  Every token
// carries a random jti, so two logins in the same second never share a token
// string and revoking one leaves the other usable.
func (i *Issuer) Issue(userID uint64, ttl time.Duration) (string, *Claims, error) {
	jti, err := uuid.NewRandom()
	if err != nil {
		return "", nil, fmt.Errorf("token id: %w", err)
	}
	now := i.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.  The
// error is always ErrTokenExpired or ErrTokenInvalid, wrapping the parser
// error for logging.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
