package auth

import (
	"context"
	"time"

	"escape-room-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims of a player token.
type Claims struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret, now: time.Now}
}

// Issue signs a token for identity. A zero ttl produces a token without expiry.
func (v *JWTVerifier) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		Name:  identity.DisplayName,
		Phone: identity.PhoneNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.UID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		PhoneNumber: claims.Phone,
	}, nil
}
