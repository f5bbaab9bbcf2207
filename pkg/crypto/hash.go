package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

// HashMode selects how a wire form is turned into the value that gets signed.
type HashMode int

const (
	// HashSHA512 hashes the wire bytes with SHA-256, renders the digest as
	// lowercase hex and hashes those ASCII bytes with SHA-512. Currency
	// transactions use this mode.
	HashSHA512 HashMode = iota

	// HashSHA256 is the legacy path: the SHA-256 digest of the wire bytes is
	// signed directly.
	HashSHA256
)

func (m HashMode) String() string {
	switch m {
	case HashSHA512:
		return "sha512"
	case HashSHA256:
		return "sha256"
	default:
		return fmt.Sprintf("HashMode(%d)", int(m))
	}
}

// ParseHashMode parses the names produced by HashMode.String.
func ParseHashMode(s string) (HashMode, error) {
	switch s {
	case "sha512", "":
		return HashSHA512, nil
	case "sha256":
		return HashSHA256, nil
	default:
		return 0, fmt.Errorf("unknown hash mode %q", s)
	}
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA512Digest returns the SHA-512 digest of data.
func SHA512Digest(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:]
}

// HashForSigning computes the signing hash of a hex-encoded wire form.
//
// For HashSHA512 the result is 64 bytes; only the first 32 are signed. For
// HashSHA256 the result is the 32-byte digest itself.
func HashForSigning(wireHex string, mode HashMode) ([]byte, error) {
	wire, err := hex.DecodeString(wireHex)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeEncoding, "wire form is not valid hex", err)
	}

	switch mode {
	case HashSHA512:
		return SHA512Digest([]byte(SHA256Hex(wire))), nil
	case HashSHA256:
		sum := sha256.Sum256(wire)
		return sum[:], nil
	default:
		return nil, keyerr.Newf(keyerr.CodeEncoding, "unsupported hash mode %d", int(mode))
	}
}
