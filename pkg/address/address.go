// Package address derives and validates DAG ledger addresses.
//
// An address is "DAG", one checksum digit, and a 36 character Base58
// fragment taken from the tail of the encoded SHA-256 of the public key in
// its PKCS (SubjectPublicKeyInfo) form.
package address

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

const (
	// Prefix starts every DAG address.
	Prefix = "DAG"

	// FragmentLength is the number of Base58 characters kept from the
	// encoded public key hash.
	FragmentLength = 36

	// Length is the total length of a DAG address.
	Length = len(Prefix) + 1 + FragmentLength

	// PKCSPrefix is the DER SubjectPublicKeyInfo header for an uncompressed
	// secp256k1 key (id-ecPublicKey, secp256k1, BIT STRING of 66 bytes).
	PKCSPrefix = "3056301006072a8648ce3d020106052b8104000a034200"
)

// Derive computes the address for a public key in hex.
//
// The key may be 130 hex characters starting with 04, or the raw 128
// character X||Y form (the 04 marker is added).
func Derive(publicKeyHex string) (string, error) {
	normalized, err := crypto.NormalizePublicKeyHex(publicKeyHex)
	if err != nil {
		return "", err
	}

	der, err := hex.DecodeString(PKCSPrefix + normalized)
	if err != nil {
		return "", keyerr.Wrap(keyerr.CodeInvalidPublicKey, "public key is not valid hex", err)
	}

	digest := sha256.Sum256(der)
	encoded := base58.Encode(digest[:])
	if len(encoded) < FragmentLength {
		// A 32-byte value only encodes this short with ~2^-60 odds.
		return "", keyerr.Newf(keyerr.CodeEncoding, "encoded hash too short: %d characters", len(encoded))
	}

	fragment := encoded[len(encoded)-FragmentLength:]
	return Prefix + string('0'+Checksum(fragment)) + fragment, nil
}

// FromPublicKey computes the address for pub.
func FromPublicKey(pub *crypto.PublicKey) (string, error) {
	if pub == nil {
		return "", keyerr.New(keyerr.CodeInvalidPublicKey, "public key is required")
	}
	return Derive(pub.Hex())
}

// Checksum sums the decimal digits in fragment modulo 9.
//
// The sum is reduced after every digit so it never grows, which gives the
// same result as reducing the full sum once.
func Checksum(fragment string) byte {
	var sum byte
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		if c >= '0' && c <= '9' {
			sum = (sum + (c - '0')) % 9
		}
	}
	return sum
}

// ValidateChecksum reports whether the digit after the prefix matches the
// fragment. Validate does not require this; use it to catch typos in
// addresses produced by Derive. It does not check Base58 membership.
func ValidateChecksum(addr string) bool {
	if len(addr) != Length || !strings.HasPrefix(addr, Prefix) {
		return false
	}
	digit := addr[len(Prefix)]
	if digit < '0' || digit > '9' {
		return false
	}
	return digit-'0' == Checksum(addr[len(Prefix)+1:])
}

// Validate checks that addr is structurally a DAG address: the length, the
// prefix, a single digit after it, and a fragment that round-trips through
// Base58. The digit is not compared against Checksum.
func Validate(addr string) error {
	if len(addr) != Length {
		return keyerr.Newf(keyerr.CodeInvalidAddress,
			"address %q: length %d, want %d", addr, len(addr), Length)
	}
	if !strings.HasPrefix(addr, Prefix) {
		return keyerr.Newf(keyerr.CodeInvalidAddress, "address %q: missing %s prefix", addr, Prefix)
	}
	if digit := addr[len(Prefix)]; digit < '0' || digit > '9' {
		return keyerr.Newf(keyerr.CodeInvalidAddress, "address %q: checksum is not a digit", addr)
	}

	fragment := addr[len(Prefix)+1:]
	if base58.Encode(base58.Decode(fragment)) != fragment {
		return keyerr.Newf(keyerr.CodeInvalidAddress, "address %q: fragment is not base58", addr)
	}
	return nil
}

// IsValid reports whether Validate accepts addr.
func IsValid(addr string) bool {
	return Validate(addr) == nil
}
