package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/config"
	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
)

// TokenVerifier resolves a bearer token into an owner account identity.
// Token issuance lives outside this service; the realtime and HTTP layers
// only ever need verification.
type TokenVerifier interface {
	Verify(token string) (ownerID uint64, err error)
}

// JWTVerifier verifies HMAC-signed JWTs whose subject is the owner ID.
type JWTVerifier struct {
	secret []byte
	expiry time.Duration
}

func NewJWTVerifier(cfg *config.Config) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(cfg.JWT.Secret),
		expiry: time.Duration(cfg.JWT.ExpiryMin) * time.Minute,
	}
}

// Verify parses and validates the token, returning the owner ID from the
// subject claim. Any parse/signature/expiry problem maps to
// ErrAuthenticationFailed, never a raw library error.
func (v *JWTVerifier) Verify(token string) (uint64, error) {
	if token == "" {
		return 0, svcErr.ErrAuthenticationFailed
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, svcErr.ErrAuthenticationFailed
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, svcErr.ErrAuthenticationFailed
	}

	ownerID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || ownerID == 0 {
		return 0, svcErr.ErrAuthenticationFailed
	}
	return ownerID, nil
}

// Issue mints a token for an owner. Used by the seed command and tests;
// production issuance belongs to the account service.
func (v *JWTVerifier) Issue(ownerID uint64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(ownerID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.expiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
