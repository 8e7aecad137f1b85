package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tenurix/internal/apperror"
)

// Claims is the token payload. Perm accepts either a single string or an array.
type Claims struct {
	UID    string           `json:"uid,omitempty"`
	NameID string           `json:"nameid,omitempty"`
	Email  string           `json:"email,omitempty"`
	Role   string           `json:"role,omitempty"`
	Perm   jwt.ClaimStrings `json:"perm,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies session tokens with a shared HMAC secret.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret []byte, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source; used by tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

// Issue signs a token embedding the caller's role and permission snapshot.
func (m *TokenManager) Issue(userID int64, email, role string, perms []string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	id := strconv.FormatInt(userID, 10)

	claims := Claims{
		UID:   id,
		Email: email,
		Role:  role,
		Perm:  jwt.ClaimStrings(perms),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.New("failed to sign token")
	}
	return signed, expiresAt, nil
}

// Parse verifies the token and returns the session it describes. Any failure is
// reported as Unauthenticated.
func (m *TokenManager) Parse(tokenString string) (Session, error) {
	if tokenString == "" {
		return Session{}, apperror.Unauthenticated("authorization is missing")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Session{}, &apperror.Error{Kind: apperror.KindUnauthenticated, Message: "invalid token", Err: err}
	}

	return NewSession(
		[]string{claims.UID, claims.Subject, claims.NameID},
		claims.Email,
		claims.Role,
		claims.Perm,
	), nil
}
