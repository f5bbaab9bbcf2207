// Package crypto implements secp256k1 key handling, the signing hash chain and
// deterministic ECDSA signatures for DAG ledger transactions.
//
// Key formats:
//   - Private keys: raw 32-byte scalars, usually carried as 64 hex characters
//   - Public keys: uncompressed 65-byte points (0x04 prefix + X + Y)
//   - Signatures: DER-encoded, always in low-S canonical form
//
// The ledger identifies a signer by the 128 hex characters of its public key
// without the 0x04 prefix (see PublicKey.ID).
package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

const (
	// PrivateKeySize is the length of a raw private key scalar.
	PrivateKeySize = 32

	// PublicKeySize is the length of an uncompressed public key including the 0x04 prefix.
	PublicKeySize = 65

	// uncompressedPrefix marks an uncompressed SEC1 point.
	uncompressedPrefix = "04"
)

// PrivateKey wraps secp256k1 private key
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps secp256k1 public key
type PublicKey struct {
	key *secp256k1.PublicKey
}

// KeyPair holds a private key and the public key derived from it.
//
// Public is always computed from Private; the two are never set independently.
type KeyPair struct {
	Private *PrivateKey
	Public  *PublicKey
}

// NewKeyPair builds the key pair for priv.
func NewKeyPair(priv *PrivateKey) *KeyPair {
	return &KeyPair{Private: priv, Public: priv.PublicKey()}
}

// PrivateKeyFromBytes creates a private key from raw bytes.
//
// Returns an error if the input is not 32 bytes or the scalar is not in
// [1, N-1]. Out-of-range scalars are rejected rather than reduced mod N.
func PrivateKeyFromBytes(keyBytes []byte) (*PrivateKey, error) {
	if len(keyBytes) != PrivateKeySize {
		return nil, keyerr.Newf(keyerr.CodeInvalidKey,
			"private key must be %d bytes, got %d", PrivateKeySize, len(keyBytes))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(keyBytes); overflow {
		return nil, keyerr.New(keyerr.CodeInvalidKey, "private key scalar is not below the curve order")
	}
	if scalar.IsZero() {
		return nil, keyerr.New(keyerr.CodeInvalidKey, "private key scalar is zero")
	}

	return &PrivateKey{key: secp256k1.NewPrivateKey(&scalar)}, nil
}

// ParsePrivateKeyHex parses a hex-encoded private key.
func ParsePrivateKeyHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeInvalidKey, "private key is not valid hex", err)
	}
	return PrivateKeyFromBytes(b)
}

// GeneratePrivateKey returns a fresh random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PublicKey derives the public key
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the raw 32-byte private key
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// Hex returns the private key as 64 lowercase hex characters.
func (pk *PrivateKey) Hex() string {
	return hex.EncodeToString(pk.key.Serialize())
}

// Zero clears the private scalar from memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// SerializeUncompressed returns the 65-byte uncompressed public key.
func (pub *PublicKey) SerializeUncompressed() []byte {
	return pub.key.SerializeUncompressed()
}

// SerializeCompressed returns the 33-byte compressed public key
func (pub *PublicKey) SerializeCompressed() []byte {
	return pub.key.SerializeCompressed()
}

// Hex returns the uncompressed public key as 130 hex characters (04 prefix included).
func (pub *PublicKey) Hex() string {
	return hex.EncodeToString(pub.key.SerializeUncompressed())
}

// ID returns the signer id used in signature proofs: the uncompressed public
// key hex without the 04 prefix.
func (pub *PublicKey) ID() string {
	return pub.Hex()[len(uncompressedPrefix):]
}

// IsEqual reports whether two public keys are the same point.
func (pub *PublicKey) IsEqual(other *PublicKey) bool {
	return other != nil && pub.key.IsEqual(other.key)
}

// ParsePublicKey parses a SEC1 encoded public key (33 or 65 bytes).
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	if len(pubKeyBytes) != PublicKeySize && len(pubKeyBytes) != 33 {
		return nil, keyerr.Newf(keyerr.CodeInvalidPublicKey,
			"public key must be 33 or 65 bytes, got %d", len(pubKeyBytes))
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeInvalidPublicKey, "failed to parse public key", err)
	}

	return &PublicKey{key: pubKey}, nil
}

// NormalizePublicKeyHex returns the 130-character uncompressed form of a hex
// public key.
//
// Accepted inputs:
//   - 128 hex characters: raw X||Y, the 04 prefix is implied
//   - 130 hex characters starting with 04
//
// Any other length or prefix fails with INVALID_PUBLIC_KEY.
func NormalizePublicKeyHex(s string) (string, error) {
	switch {
	case len(s) == 2*(PublicKeySize-1):
		return uncompressedPrefix + s, nil
	case len(s) == 2*PublicKeySize && strings.HasPrefix(s, uncompressedPrefix):
		return s, nil
	default:
		return "", keyerr.Newf(keyerr.CodeInvalidPublicKey,
			"public key must be 128 or 130 hex characters with 04 prefix, got %d", len(s))
	}
}

// ParsePublicKeyHex parses a hex public key.
//
// Besides the forms accepted by NormalizePublicKeyHex, a 66-character
// compressed key is accepted so keys exported by other wallets can be checked.
func ParsePublicKeyHex(s string) (*PublicKey, error) {
	if len(s) != 66 {
		normalized, err := NormalizePublicKeyHex(s)
		if err != nil {
			return nil, err
		}
		s = normalized
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeInvalidPublicKey, "public key is not valid hex", err)
	}
	return ParsePublicKey(b)
}
