package manifest

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	// ErrSecretTooShort indicates the signing secret is too weak.
	ErrSecretTooShort = errors.New("workspace token secret must be at least 32 bytes")

	// ErrInvalidToken indicates the token failed signature or claims
	// validation.
	ErrInvalidToken = errors.New("invalid workspace token")

	// ErrTokenMismatch indicates the token is valid but was issued for
	// a different task, branch, or path.
	ErrTokenMismatch = errors.New("workspace token does not match workspace")
)

// tokenIssuer identifies tokens minted by this package.
const tokenIssuer = "skillcycle"

// DefaultTokenTTL bounds how long a provisioned workspace stays
// resumable without re-validation.
const DefaultTokenTTL = 30 * 24 * time.Hour

// WorkspaceClaims binds a workspace token to one task's working tree.
type WorkspaceClaims struct {
	Branch string `json:"branch"`
	Path   string `json:"path"`
	jwt.RegisteredClaims
}

// TokenSigner mints and verifies workspace-validity tokens. A token
// makes resumability an explicit named property of the manifest: a
// resume with a valid token reuses the recorded workspace, anything
// else re-provisions from the recorded branch.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner creates a signer with the given HMAC secret.
func NewTokenSigner(secret []byte) (*TokenSigner, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}
	return &TokenSigner{secret: secret, ttl: DefaultTokenTTL}, nil
}

// Sign issues a token binding taskID to the branch and workspace path.
func (s *TokenSigner) Sign(taskID, branch, path string) (string, error) {
	now := time.Now()
	claims := WorkspaceClaims{
		Branch: branch,
		Path:   path,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   taskID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign workspace token: %w", err)
	}
	return signed, nil
}

// Verify checks that tokenString was issued for taskID, branch, and
// path. Returns ErrInvalidToken for bad signatures or expiry and
// ErrTokenMismatch when the binding differs.
func (s *TokenSigner) Verify(tokenString, taskID, branch, path string) error {
	claims := &WorkspaceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	if claims.Issuer != tokenIssuer {
		return ErrInvalidToken
	}
	if claims.Subject != taskID || claims.Branch != branch || claims.Path != path {
		return ErrTokenMismatch
	}
	return nil
}
