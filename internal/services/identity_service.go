package services

import (
	"errors"
	"fmt"
	"time"

	"team-shortlink/configs"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityService resolves the current member identity from a signed session
// token. It stands in for whatever upstream identity provider issued the
// login; the rest of the system only consumes the opaque identity string.
type IdentityService struct {
	secret []byte
	ttl    time.Duration
}

func NewIdentityService() *IdentityService {
	return &IdentityService{
		secret: []byte(configs.AppConfig.JWTSecret),
		ttl:    configs.AppConfig.SessionTTL,
	}
}

type SessionClaims struct {
	MemberIdentity string `json:"member_identity"`
	DisplayName    string `json:"display_name"`
	jwt.RegisteredClaims
}

func (s *IdentityService) IssueSession(memberIdentity, displayName string) (string, error) {
	expirationTime := time.Now().Add(s.ttl)

	claims := &SessionClaims{
		MemberIdentity: memberIdentity,
		DisplayName:    displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "team-shortlink",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *IdentityService) ResolveSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.MemberIdentity == "" {
		return nil, errors.New("invalid session token")
	}

	return claims, nil
}
