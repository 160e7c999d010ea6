package token

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every validation failure: bad signature, malformed
// structure, unexpected algorithm, or expiry in the past.
var ErrInvalidToken = errors.New("invalid token")

type Config struct {
	Secret string
	TTL    time.Duration
}

// ConfigFromEnv reads the signing secret and TTL from env vars. Both are
// fixed at startup and never change for the lifetime of the process.
func ConfigFromEnv() Config {
	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		// default local
		secret = "taskdeck-dev-secret-change-me"
	}
	ttl := time.Hour
	if v := os.Getenv("TOKEN_TTL_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			ttl = time.Duration(m) * time.Minute
		}
	}
	return Config{Secret: secret, TTL: ttl}
}

// Service issues and validates signed identity tokens bound to an email.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(cfg Config) *Service {
	return &Service{secret: []byte(cfg.Secret), ttl: cfg.TTL}
}

// Issue signs an HS256 token whose subject is the holder's email. Expiry is
// issued-at plus the fixed TTL; there is no refresh or rotation mechanism.
func (s *Service) Issue(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Validate verifies signature and expiry and returns the subject email.
func (s *Service) Validate(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
