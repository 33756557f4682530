package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config configures the claim extractor.
type Config struct {
	// Issuer, if set, must match the token's iss claim.
	Issuer string

	// Audience, if set, must appear in the token's aud claim.
	Audience string

	// PrincipalClaim names the claim carrying the user principal.
	// Default: "sub".
	PrincipalClaim string

	// TenantClaim names the claim carrying the tenant ID, if any.
	TenantClaim string

	// CorrelationClaim names the claim carrying a correlation ID, if any.
	CorrelationClaim string

	// RolesClaim names the claim carrying a string-array of roles, if any.
	RolesClaim string
}

func (c Config) withDefaults() Config {
	if c.PrincipalClaim == "" {
		c.PrincipalClaim = "sub"
	}
	return c
}

// KeyProvider resolves the signing key used to verify a token.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider returns the same key regardless of key ID.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider builds a StaticKeyProvider around key.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey implements KeyProvider.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// Claims is the subset of a verified token's claims this package cares
// about. Behavior seeds Principal, TenantID, CorrelationID and Roles
// onto the Context; the full raw claim set is carried for callers that
// need more.
type Claims struct {
	Principal     string
	TenantID      string
	CorrelationID string
	Roles         []string
	Raw           map[string]any
	ExpiresAt     time.Time
	IssuedAt      time.Time
}

// Extractor verifies a bearer token and extracts Claims from it.
type Extractor struct {
	config      Config
	keyProvider KeyProvider
}

// NewExtractor builds an Extractor. keyProvider resolves the signing
// key named by the token's kid header.
func NewExtractor(config Config, keyProvider KeyProvider) *Extractor {
	return &Extractor{config: config.withDefaults(), keyProvider: keyProvider}
}

// Extract verifies tokenString and returns the Claims it carries.
func (e *Extractor) Extract(ctx context.Context, tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return e.keyProvider.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, wrapJWTError(err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("identity: token is not valid")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("identity: unexpected claims type %T", token.Claims)
	}

	if e.config.Issuer != "" {
		if iss, ok := mapClaims["iss"].(string); !ok || iss != e.config.Issuer {
			return nil, fmt.Errorf("identity: issuer mismatch")
		}
	}
	if e.config.Audience != "" && !e.containsAudience(e.audience(mapClaims), e.config.Audience) {
		return nil, fmt.Errorf("identity: audience mismatch")
	}

	return e.buildClaims(mapClaims), nil
}

func (e *Extractor) audience(claims jwt.MapClaims) []string {
	switch v := claims["aud"].(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (e *Extractor) containsAudience(audiences []string, target string) bool {
	for _, aud := range audiences {
		if aud == target {
			return true
		}
	}
	return false
}

func (e *Extractor) buildClaims(mapClaims jwt.MapClaims) *Claims {
	claims := &Claims{Raw: make(map[string]any, len(mapClaims))}
	for k, v := range mapClaims {
		claims.Raw[k] = v
	}

	if principal, ok := mapClaims[e.config.PrincipalClaim].(string); ok {
		claims.Principal = principal
	}
	if e.config.TenantClaim != "" {
		if tenant, ok := mapClaims[e.config.TenantClaim].(string); ok {
			claims.TenantID = tenant
		}
	}
	if e.config.CorrelationClaim != "" {
		if corr, ok := mapClaims[e.config.CorrelationClaim].(string); ok {
			claims.CorrelationID = corr
		}
	}
	if e.config.RolesClaim != "" {
		if roles, ok := mapClaims[e.config.RolesClaim].([]interface{}); ok {
			claims.Roles = make([]string, 0, len(roles))
			for _, r := range roles {
				if s, ok := r.(string); ok {
					claims.Roles = append(claims.Roles, s)
				}
			}
		}
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	return claims
}

func wrapJWTError(err error) error {
	return fmt.Errorf("identity: %w", err)
}
