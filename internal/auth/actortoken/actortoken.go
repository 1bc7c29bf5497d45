// Package actortoken verifies signed actor tokens issued by the identity
// provider and maps their claims to an acting principal.
package actortoken

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// Environment variable names for actor token verification.
const (
	EnvIssuer    = "APPROVALS_ACTOR_TOKEN_ISSUER"
	EnvAudience  = "APPROVALS_ACTOR_TOKEN_AUDIENCE"
	EnvPublicKey = "APPROVALS_ACTOR_TOKEN_PUBLIC_KEY"
)

// tokenEnv holds raw env values before post-parse validation.
type tokenEnv struct {
	Issuer    string `env:"APPROVALS_ACTOR_TOKEN_ISSUER"`
	Audience  string `env:"APPROVALS_ACTOR_TOKEN_AUDIENCE"`
	PublicKey string `env:"APPROVALS_ACTOR_TOKEN_PUBLIC_KEY"`
}

// Config defines how actor tokens are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// actorClaims is the internal claims type used for JWT parsing.
type actorClaims struct {
	jwt.RegisteredClaims
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

// LoadConfigFromEnv reads actor token verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw tokenEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse actor token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("%s is required", EnvIssuer)
	}
	if audience == "" {
		return Config{}, fmt.Errorf("%s is required", EnvAudience)
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("%s is required", EnvPublicKey)
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode actor token public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("actor token public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verify checks the token signature and claims and returns the actor.
//
// The subject claim carries the actor id, role carries the privilege tier,
// and permissions carries the stored grant map. Grants pass through as-is;
// the permission gate decides which grants are effective.
func Verify(token string, cfg Config) (domain.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return domain.Actor{}, errors.New("actor token verifier is not configured")
	}

	var parsed actorClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domain.Actor{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token issuer mismatch")
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token audience mismatch")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token subject is required")
	}
	if parsed.ExpiresAt == nil {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token exp is required")
	}

	now := cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token not active yet")
	}

	role, ok := domain.ParseRole(parsed.Role)
	if !ok {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "actor token role is invalid")
	}

	actor := domain.Actor{ID: parsed.Subject, Role: role}
	if len(parsed.Permissions) > 0 {
		actor.Permissions = make(map[domain.PermissionKey]bool, len(parsed.Permissions))
		for key, granted := range parsed.Permissions {
			permission, ok := domain.ParsePermissionKey(key)
			if !ok {
				continue
			}
			actor.Permissions[permission] = granted
		}
	}
	return actor, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeUnauthenticated, "actor token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeUnauthenticated, "actor token alg is invalid")
	}
	return apperrors.New(apperrors.CodeUnauthenticated, "actor token is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
