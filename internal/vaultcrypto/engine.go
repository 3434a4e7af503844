// Package vaultcrypto implements authenticated field-level encryption for
// the vault: AES-256-GCM envelopes under a single process-lifetime KEK.
package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"grantvault/internal/fault"
)

// Engine holds the validated KEK and performs envelope encryption.
// It is safe for concurrent use; the key is never mutated after NewEngine.
type Engine struct {
	aead cipher.AEAD
}

// NewEngine validates the KEK against the startup policy and builds the
// AEAD. A policy violation is fatal for the process: callers must refuse to
// serve encryption-dependent endpoints rather than run with a weak key.
func NewEngine(kek []byte) (*Engine, error) {
	if err := ValidateKEK(kek); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}
	return &Engine{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random 12-byte IV. Every call
// produces a new envelope, including repeated calls with the same plaintext.
func (e *Engine) Encrypt(plaintext string) (Envelope, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}

	// Seal appends the 16-byte tag to the ciphertext; the envelope keeps
	// them separate.
	sealed := e.aead.Seal(nil, iv, []byte(plaintext), nil)
	n := len(sealed) - tagSize
	return Envelope{
		IV:         iv,
		Tag:        sealed[n:],
		Ciphertext: sealed[:n],
	}, nil
}

// EncryptString is Encrypt with the envelope already serialized, which is
// what the field stores persist.
func (e *Engine) EncryptString(plaintext string) (string, error) {
	env, err := e.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return env.Encode(), nil
}

// Decrypt opens an envelope. Tag verification failure is fault.ErrIntegrity:
// a tampered envelope never yields a different plaintext silently.
func (e *Engine) Decrypt(env Envelope) (string, error) {
	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plain, err := e.aead.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: envelope authentication failed", fault.ErrIntegrity)
	}
	return string(plain), nil
}

// DecryptString parses and opens a serialized envelope.
func (e *Engine) DecryptString(s string) (string, error) {
	env, err := ParseEnvelope(s)
	if err != nil {
		return "", err
	}
	return e.Decrypt(env)
}

// DecryptBytes opens a raw encrypted blob laid out as iv || ciphertext+tag,
// the format used for encrypted documents in object storage.
func (e *Engine) DecryptBytes(blob []byte) ([]byte, error) {
	if len(blob) < ivSize+tagSize {
		return nil, fmt.Errorf("%w: encrypted blob too short", fault.ErrValidation)
	}
	plain, err := e.aead.Open(nil, blob[:ivSize], blob[ivSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: blob authentication failed", fault.ErrIntegrity)
	}
	return plain, nil
}

// EncryptBytes seals raw bytes in the iv || ciphertext+tag layout.
func (e *Engine) EncryptBytes(plain []byte) ([]byte, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrInternal, err)
	}
	return append(iv, e.aead.Seal(nil, iv, plain, nil)...), nil
}
