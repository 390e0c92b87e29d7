package license

import (
	"fmt"
	"time"

	"churnvision-controlplane/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// Limits is the entitlement ceiling block embedded in the token. Nil means
// unlimited.
type Limits struct {
	MaxEmployees *int `json:"max_employees"`
	MaxUsers     *int `json:"max_users"`
}

// LLMAPIKeys are third-party provider credentials passed through verbatim for
// the customer's deployment. The issuer treats them as opaque.
type LLMAPIKeys struct {
	OpenAI    string `json:"openai,omitempty"`
	Anthropic string `json:"anthropic,omitempty"`
	Google    string `json:"google,omitempty"`
}

// EmbeddedKeys carries credentials the customer's deployment uses to call back
// into this control plane and to reach LLM providers.
type EmbeddedKeys struct {
	AdminAPIKey string      `json:"admin_api_key,omitempty"`
	LLMAPIKeys  *LLMAPIKeys `json:"llm_api_keys,omitempty"`
}

// Claims is the signed license payload. The subject is derived from the tenant
// slug so a token is self-identifying without a database lookup.
type Claims struct {
	jwt.RegisteredClaims
	Features     []string      `json:"features"`
	Limits       Limits        `json:"limits"`
	EmbeddedKeys *EmbeddedKeys `json:"embedded_keys,omitempty"`
}

// Signer encodes and verifies license tokens with a process-wide symmetric
// secret. The secret is injected at construction; nothing reads configuration
// ambiently afterwards.
type Signer struct {
	secret []byte
	issuer string
}

func NewSigner(cfg *config.Config) (*Signer, error) {
	if cfg.License.SigningSecret == "" {
		return nil, fmt.Errorf("license signing secret not configured")
	}
	return &Signer{
		secret: []byte(cfg.License.SigningSecret),
		issuer: cfg.License.Issuer,
	}, nil
}

func (s *Signer) Issuer() string { return s.issuer }

// NewClaims builds the claim set for a license granted to tenantSlug.
func (s *Signer) NewClaims(tenantSlug string, issuedAt, expiresAt time.Time, features []string, limits Limits, keys *EmbeddedKeys) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   "tenant_" + tenantSlug,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Features:     features,
		Limits:       limits,
		EmbeddedKeys: keys,
	}
}

// Sign encodes the claims as a compact HS256 token.
func (s *Signer) Sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses tokenString, checking the signature and the token's own expiry
// claim. It is the fast pre-check only: the database row stays authoritative
// for expiry after extension.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
