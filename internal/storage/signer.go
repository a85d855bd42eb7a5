package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrPathMismatch = errors.New("storage: token was issued for another path")

type fileClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// URLSigner issues and checks HS256 tokens that grant read access to one
// object key until they expire.
type URLSigner struct {
	secret []byte
	now    func() time.Time
}

func NewURLSigner(secret string) *URLSigner {
	return &URLSigner{secret: []byte(secret), now: time.Now}
}

func (s *URLSigner) Sign(key string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := fileClaims{
		Path: key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign file token: %w", err)
	}
	return token, nil
}

// Verify checks the signature, the expiry and that the token names key.
func (s *URLSigner) Verify(token, key string) error {
	var claims fileClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return err
	}
	if claims.Path != key {
		return ErrPathMismatch
	}
	return nil
}
