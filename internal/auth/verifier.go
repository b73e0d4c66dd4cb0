package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrUnknownRole  = errors.New("token carries an unknown role")
)

// Verifier validates a bearer credential and returns the principal it
// represents. There is exactly one authentication contract; the engine never
// probes alternative endpoints or payload shapes.
type Verifier interface {
	Verify(token string) (Principal, error)
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens issued by the external auth service. Both
// sides share the signing secret; this side only ever verifies.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(token string) (Principal, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject is not a UUID", ErrInvalidToken)
	}

	if claims.Role != RolePatient && claims.Role != RoleProfessional {
		return Principal{}, ErrUnknownRole
	}

	return Principal{UserID: userID, Role: claims.Role}, nil
}
