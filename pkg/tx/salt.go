package tx

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

const (
	// MinSalt offsets every salt so it never collides with small values.
	MinSalt = 100_000_000

	// SaltBits is the number of random bits added to MinSalt.
	SaltBits = 48
)

// NewSalt draws MinSalt plus 48 bits from the system CSPRNG.
func NewSalt() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[2:]); err != nil {
		return 0, keyerr.Wrap(keyerr.CodeEncoding, "failed to read random salt", err)
	}
	return MinSalt + int64(binary.BigEndian.Uint64(buf[:])), nil
}

// SaltHex renders salt as lowercase hex of its 64-bit two's complement.
// Negative values wrap, so -1 becomes ffffffffffffffff.
func SaltHex(salt int64) string {
	return strconv.FormatUint(uint64(salt), 16)
}
