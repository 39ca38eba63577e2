package auth

import (
	"errors"
	"strings"
	"time"

	"akppos/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid or expired credential")
)

// Claims are the custom claims embedded in every access token.
type Claims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 access tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for p.
func (m *Manager) Issue(p Principal) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   p.UserID.String(),
		Email:    p.Email,
		Role:     string(p.Role),
		TenantID: p.TenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Resolve decodes a raw token into a Principal. Tokens with an unknown role
// or malformed ids are rejected as invalid.
func (m *Manager) Resolve(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingCredential
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidCredential
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}
	tid, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, ErrInvalidCredential
	}
	return Principal{UserID: uid, Email: claims.Email, Role: role, TenantID: tid}, nil
}

// ResolveHeader extracts a bearer token from an Authorization header value.
func (m *Manager) ResolveHeader(header string) (Principal, error) {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Principal{}, ErrMissingCredential
	}
	return m.Resolve(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
}
