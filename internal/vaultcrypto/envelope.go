package vaultcrypto

import (
	"encoding/base64"
	"fmt"
	"strings"

	"grantvault/internal/fault"
)

// envelopeSep joins the base64 parts of a serialized envelope.
// The 3-part layout (iv:tag:ciphertext) is stable; a key-id part may be
// prepended in a future layout without breaking ParseEnvelope callers.
const envelopeSep = ":"

const (
	ivSize  = 12
	tagSize = 16
)

// Envelope is the output of one encryption call: a fresh random IV, the
// GCM authentication tag and the ciphertext. Envelopes are never reused;
// re-encrypting the same plaintext produces a new one.
type Envelope struct {
	IV         []byte
	Tag        []byte
	Ciphertext []byte
}

// Encode serializes the envelope as base64(iv):base64(tag):base64(ciphertext).
func (e Envelope) Encode() string {
	enc := base64.StdEncoding
	return enc.EncodeToString(e.IV) + envelopeSep +
		enc.EncodeToString(e.Tag) + envelopeSep +
		enc.EncodeToString(e.Ciphertext)
}

// ParseEnvelope decodes the string form produced by Encode.
// Malformed input is a validation error, not an integrity error: the
// envelope never reached the authenticator.
func ParseEnvelope(s string) (Envelope, error) {
	parts := strings.Split(s, envelopeSep)
	if len(parts) != 3 {
		return Envelope{}, fmt.Errorf("%w: envelope must have 3 parts, got %d", fault.ErrValidation, len(parts))
	}

	enc := base64.StdEncoding
	iv, err := enc.DecodeString(parts[0])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: bad iv encoding", fault.ErrValidation)
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: bad tag encoding", fault.ErrValidation)
	}
	ct, err := enc.DecodeString(parts[2])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: bad ciphertext encoding", fault.ErrValidation)
	}

	if len(iv) != ivSize {
		return Envelope{}, fmt.Errorf("%w: iv must be %d bytes", fault.ErrValidation, ivSize)
	}
	if len(tag) != tagSize {
		return Envelope{}, fmt.Errorf("%w: tag must be %d bytes", fault.ErrValidation, tagSize)
	}

	return Envelope{IV: iv, Tag: tag, Ciphertext: ct}, nil
}
