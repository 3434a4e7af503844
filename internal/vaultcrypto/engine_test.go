package vaultcrypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantvault/internal/fault"
)

func testKEK(t *testing.T) []byte {
	t.Helper()
	kek := []byte("Vg7kLm2PqXs9RtWz4YbNc6DfHj8eAu3S")
	require.Len(t, kek, KEKSize)
	return kek
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(testKEK(t))
	require.NoError(t, err)
	return e
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	e := newTestEngine(t)

	for _, plain := range []string{"", "1", "12345-6", "conta corrente 0001-9", strings.Repeat("x", 4096)} {
		env, err := e.Encrypt(plain)
		require.NoError(t, err)

		got, err := e.Decrypt(env)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.EncryptString("same plaintext")
	require.NoError(t, err)
	b, err := e.EncryptString("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two envelopes for the same plaintext must differ")
}

func TestDecrypt_TamperedEnvelope(t *testing.T) {
	e := newTestEngine(t)

	env, err := e.Encrypt("sensitive value")
	require.NoError(t, err)

	tamperedCT := env
	tamperedCT.Ciphertext = append([]byte(nil), env.Ciphertext...)
	tamperedCT.Ciphertext[0] ^= 0x01
	_, err = e.Decrypt(tamperedCT)
	assert.ErrorIs(t, err, fault.ErrIntegrity)

	tamperedTag := env
	tamperedTag.Tag = append([]byte(nil), env.Tag...)
	tamperedTag.Tag[len(tamperedTag.Tag)-1] ^= 0x80
	_, err = e.Decrypt(tamperedTag)
	assert.ErrorIs(t, err, fault.ErrIntegrity)
}

func TestEnvelope_EncodeParse(t *testing.T) {
	e := newTestEngine(t)

	env, err := e.Encrypt("round trip through the string form")
	require.NoError(t, err)

	parsed, err := ParseEnvelope(env.Encode())
	require.NoError(t, err)
	assert.Equal(t, env, parsed)

	_, err = ParseEnvelope("only-two:parts")
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = ParseEnvelope("!!!:AAAA:AAAA")
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestEncryptDecryptBytes_Documents(t *testing.T) {
	e := newTestEngine(t)

	doc := []byte("%PDF-1.4 fake report body")
	blob, err := e.EncryptBytes(doc)
	require.NoError(t, err)
	require.Greater(t, len(blob), len(doc))

	got, err := e.DecryptBytes(blob)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	blob[len(blob)-1] ^= 0xff
	_, err = e.DecryptBytes(blob)
	assert.ErrorIs(t, err, fault.ErrIntegrity)

	_, err = e.DecryptBytes([]byte("short"))
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestValidateKEK(t *testing.T) {
	cases := []struct {
		name string
		kek  string
		ok   bool
	}{
		{"valid mixed key", "Vg7kLm2PqXs9RtWz4YbNc6DfHj8eAu3S", true},
		{"31 bytes", "Vg7kLm2PqXs9RtWz4YbNc6DfHj8eAu3", false},
		{"33 bytes", "Vg7kLm2PqXs9RtWz4YbNc6DfHj8eAu3Sx", false},
		{"no digits", "VgakLmbPqXscRtWzdYbNceDfHjgeAuhS", false},
		{"no upper", "vg7klm2pqxs9rtwz4ybnc6dfhj8eau3s", false},
		{"weak substring", "password1234567890123456789012AB", false},
		{"halves equal", "Ab1cDe2fGh3iJk4LAb1cDe2fGh3iJk4L", false},
		{"too few distinct", "Aa1Aa1Aa1Aa1Aa1Aa1Aa1Aa1Aa1Aa1Ab", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateKEK([]byte(tc.kek))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, fault.ErrValidation)
			}
		})
	}
}

func TestStoredValue_Open(t *testing.T) {
	e := newTestEngine(t)

	env, err := e.EncryptString("encrypted wins")
	require.NoError(t, err)

	plain, legacy, err := StoredValue{Envelope: env, Legacy: "old plaintext"}.Open(e)
	require.NoError(t, err)
	assert.Equal(t, "encrypted wins", plain)
	assert.False(t, legacy)

	// No envelope yet: the legacy column carries the read.
	plain, legacy, err = StoredValue{Legacy: "old plaintext"}.Open(e)
	require.NoError(t, err)
	assert.Equal(t, "old plaintext", plain)
	assert.True(t, legacy)

	// Corrupted envelope with a legacy column falls back instead of failing.
	plain, legacy, err = StoredValue{Envelope: "AAAA:AAAA:AAAA", Legacy: "old plaintext"}.Open(e)
	require.NoError(t, err)
	assert.Equal(t, "old plaintext", plain)
	assert.True(t, legacy)

	// Corrupted envelope without a legacy column is an error.
	bad, err := e.Encrypt("x")
	require.NoError(t, err)
	bad.Tag[0] ^= 0x01
	_, _, err = StoredValue{Envelope: bad.Encode()}.Open(e)
	assert.ErrorIs(t, err, fault.ErrIntegrity)
}
