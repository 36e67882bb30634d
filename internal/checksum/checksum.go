// Package checksum computes and verifies HMAC integrity tags over
// canonicalized payloads, so amounts and statuses cannot be tampered
// with in transit between the client and this service.
package checksum

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ChecksumField is the envelope field that carries the tag itself.
// It is always excluded from the signed content.
const ChecksumField = "checksum"

// Signer signs and verifies payloads with HMAC-SHA256 over a canonical
// JSON form. Canonicalization makes the tag stable regardless of key
// order, which changes freely when payloads cross (de)serialization
// boundaries.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer with the server-held secret key.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign computes the hex-encoded HMAC-SHA256 of the payload's canonical form.
func (s *Signer) Sign(payload any) (string, error) {
	canonical, err := s.Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return s.SignRaw(canonical), nil
}

// Verify strips the checksum field from the payload, recomputes the tag
// over the remainder and compares it to the provided one in constant time.
// A mismatch returns (false, nil); only malformed hex input is an error.
func (s *Signer) Verify(payload any, providedChecksum string) (bool, error) {
	provided, err := hex.DecodeString(providedChecksum)
	if err != nil {
		return false, fmt.Errorf("malformed checksum hex: %w", err)
	}

	generic, err := toGeneric(payload)
	if err != nil {
		return false, err
	}
	if obj, ok := generic.(map[string]any); ok {
		delete(obj, ChecksumField)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return false, err
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(buf.Bytes())
	return hmac.Equal(provided, mac.Sum(nil)), nil
}

// SignRaw computes the hex-encoded HMAC-SHA256 of raw bytes, without
// canonicalization. Used for manifest-style strings such as the
// gateway's integrity hash input.
func (s *Signer) SignRaw(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRaw compares a provided hex tag against the HMAC of raw bytes
// using constant-time comparison.
func (s *Signer) VerifyRaw(data []byte, providedHex string) bool {
	provided, err := hex.DecodeString(providedHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hmac.Equal(provided, mac.Sum(nil))
}

// Canonicalize returns the deterministic serialized form of a payload:
// object keys sorted lexicographically at every depth, array order
// preserved, compact JSON encoding.
func (s *Signer) Canonicalize(payload any) ([]byte, error) {
	generic, err := toGeneric(payload)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toGeneric round-trips a payload through JSON so structs, maps and raw
// messages all land in the same generic representation before sorting.
func toGeneric(payload any) (any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload is not JSON-serializable: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// writeCanonical recursively emits compact JSON with sorted object keys.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodedKey, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}
}
