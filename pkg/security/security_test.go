package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateBase64Secret(t *testing.T) {
	a, err := GenerateBase64Secret(32)
	require.NoError(t, err)
	b, err := GenerateBase64Secret(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a)
}

func TestArgon2RoundTrip(t *testing.T) {
	hash, err := HashArgon2("correct horse battery staple")
	require.NoError(t, err)
	require.NotContains(t, hash, "correct horse")

	require.True(t, VerifyArgon2("correct horse battery staple", hash))
	require.False(t, VerifyArgon2("wrong password", hash))
	require.False(t, VerifyArgon2("correct horse battery staple", "not-a-hash"))
}

func TestArgon2HashesDiffer(t *testing.T) {
	h1, err := HashArgon2("secret")
	require.NoError(t, err)
	h2, err := HashArgon2("secret")
	require.NoError(t, err)

	// Random salts: same input, different encodings, both verify.
	require.NotEqual(t, h1, h2)
	require.True(t, VerifyArgon2("secret", h1))
	require.True(t, VerifyArgon2("secret", h2))
}

func TestSignPayloadDeterministic(t *testing.T) {
	sig := SignPayload([]byte(`{"a":1}`), "whsec_test")
	require.Equal(t, sig, SignPayload([]byte(`{"a":1}`), "whsec_test"))
	require.NotEqual(t, sig, SignPayload([]byte(`{"a":2}`), "whsec_test"))
	require.NotEqual(t, sig, SignPayload([]byte(`{"a":1}`), "other-secret"))
	require.Len(t, sig, 64) // hex-encoded sha256
}
