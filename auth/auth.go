package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

const minSecretLength = 32

var (
	ErrTokenInvalid   = errors.New("token is invalid or expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Config holds the signing parameters shared by every token.
type Config struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the payload of both token types.
type Claims struct {
	TokenType TokenType `json:"token_type"`
	Version   uint      `json:"ver"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTokenInvalid
	}
	return uint(id), nil
}

// AccessClaims are the custom claims checked by the bearer middleware.
type AccessClaims struct {
	TokenType TokenType `json:"token_type"`
	Version   uint      `json:"ver"`
}

// Validate rejects anything that is not an access token, so refresh tokens
// cannot be used as bearer credentials.
func (c *AccessClaims) Validate(ctx context.Context) error {
	if c.TokenType != AccessToken {
		return ErrWrongTokenType
	}
	return nil
}

// TokenPair is returned on login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Manager issues and parses HS256 tokens.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d bytes", minSecretLength)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("auth: issuer and audience are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("auth: refresh lifetime must not be shorter than access lifetime")
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// IssuePair creates a fresh access and refresh token for the user.
func (m *Manager) IssuePair(userID, version uint) (TokenPair, error) {
	access, err := m.IssueAccess(userID, version)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.issue(userID, version, RefreshToken, m.config.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess creates a short-lived access token.
func (m *Manager) IssueAccess(userID, version uint) (string, error) {
	return m.issue(userID, version, AccessToken, m.config.AccessTTL)
}

func (m *Manager) issue(userID, version uint, typ TokenType, ttl time.Duration) (string, error) {
	jti, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	now := m.now()
	claims := Claims{
		TokenType: typ,
		Version:   version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (m *Manager) ParseRefresh(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != RefreshToken {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// NewValidator builds the validator used by the bearer middleware. It checks
// signature, issuer, audience and expiry, then AccessClaims.Validate.
func (m *Manager) NewValidator() (*validator.Validator, error) {
	return validator.New(
		func(context.Context) (interface{}, error) {
			return m.config.Secret, nil
		},
		validator.HS256,
		m.config.Issuer,
		[]string{m.config.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &AccessClaims{}
		}),
	)
}
