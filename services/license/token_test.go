package license

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"churnvision-controlplane/pkg/config"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	cfg := &config.Config{}
	cfg.License.Issuer = "churnvision.tech"
	cfg.License.SigningSecret = "test-signing-secret"
	signer, err := NewSigner(cfg)
	require.NoError(t, err)
	return signer
}

func TestNewSignerRequiresSecret(t *testing.T) {
	cfg := &config.Config{}
	cfg.License.Issuer = "churnvision.tech"
	_, err := NewSigner(cfg)
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := newTestSigner(t)

	maxEmployees := 100
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(365 * 24 * time.Hour)
	claims := signer.NewClaims("acme-corp", issuedAt, expiresAt,
		[]string{"analytics", "predictions"},
		Limits{MaxEmployees: &maxEmployees},
		&EmbeddedKeys{
			AdminAPIKey: "cvk_live_123.secret",
			LLMAPIKeys:  &LLMAPIKeys{OpenAI: "sk-test"},
		},
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "churnvision.tech", got.Issuer)
	require.Equal(t, "tenant_acme-corp", got.Subject)
	require.Equal(t, []string{"analytics", "predictions"}, got.Features)
	require.NotNil(t, got.Limits.MaxEmployees)
	require.Equal(t, 100, *got.Limits.MaxEmployees)
	require.Nil(t, got.Limits.MaxUsers)
	require.NotNil(t, got.EmbeddedKeys)
	require.Equal(t, "cvk_live_123.secret", got.EmbeddedKeys.AdminAPIKey)
	require.Equal(t, "sk-test", got.EmbeddedKeys.LLMAPIKeys.OpenAI)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	signer := newTestSigner(t)

	issuedAt := time.Now().UTC()
	claims := signer.NewClaims("acme-corp", issuedAt, issuedAt.Add(24*time.Hour), nil, Limits{}, nil)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = signer.Verify(tampered)
	require.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := newTestSigner(t)

	other := &config.Config{}
	other.License.Issuer = "churnvision.tech"
	other.License.SigningSecret = "a-different-secret"
	otherSigner, err := NewSigner(other)
	require.NoError(t, err)

	issuedAt := time.Now().UTC()
	claims := otherSigner.NewClaims("acme-corp", issuedAt, issuedAt.Add(24*time.Hour), nil, Limits{}, nil)
	token, err := otherSigner.Sign(claims)
	require.NoError(t, err)

	_, err = signer.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredClaim(t *testing.T) {
	signer := newTestSigner(t)

	issuedAt := time.Now().UTC().Add(-48 * time.Hour)
	claims := signer.NewClaims("acme-corp", issuedAt, issuedAt.Add(24*time.Hour), nil, Limits{}, nil)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = signer.Verify(token)
	require.Error(t, err)
}
