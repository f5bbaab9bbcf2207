package crypto

import (
	"encoding/hex"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

// DigestSize is the number of hash bytes covered by a signature. Longer
// hashes (SHA-512) are truncated to their first DigestSize bytes.
const DigestSize = 32

var (
	curveOrder = secp256k1.Params().N
	halfOrder  = new(big.Int).Rsh(curveOrder, 1)
)

// signingDigest truncates hash to the bytes that are actually signed.
func signingDigest(hash []byte) []byte {
	if len(hash) > DigestSize {
		return hash[:DigestSize]
	}
	return hash
}

// Sign creates a deterministic ECDSA signature over the first 32 bytes of hash.
//
// The nonce is derived per RFC 6979 with HMAC-SHA256, so signing the same
// hash with the same key always yields the same bytes. The result is DER
// encoded and canonicalised to low-S form.
//
// Returns an error if:
//   - the key is nil
//   - the hash is empty
func Sign(pk *PrivateKey, hash []byte) ([]byte, error) {
	if pk == nil || pk.key == nil {
		return nil, keyerr.New(keyerr.CodeInvalidKey, "private key is required")
	}
	if len(hash) == 0 {
		return nil, keyerr.New(keyerr.CodeEncoding, "cannot sign an empty hash")
	}

	sig := ecdsa.Sign(pk.key, signingDigest(hash))

	return CanonicalizeDER(sig.Serialize())
}

// Sign signs hash with this key. See Sign.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	return Sign(pk, hash)
}

// SignHex signs a hex-encoded hash with a hex-encoded private key and returns
// the DER signature as hex.
func SignHex(privateKeyHex, hashHex string) (string, error) {
	priv, err := ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return "", err
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return "", keyerr.Wrap(keyerr.CodeEncoding, "hash is not valid hex", err)
	}

	sig, err := Sign(priv, hash)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// Verify verifies a DER signature over the first 32 bytes of hash.
//
// Any cryptographic mismatch or malformed DER input yields false.
func Verify(pub *PublicKey, hash []byte, signature []byte) bool {
	if pub == nil || pub.key == nil || len(hash) == 0 {
		return false
	}

	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}

	return sig.Verify(signingDigest(hash), pub.key)
}

// VerifyHex verifies hex-encoded inputs.
//
// A public key of unsupported length fails with INVALID_PUBLIC_KEY and a hash
// that is not hex fails with ENCODING_ERROR, so callers can tell bad input
// from a bad signature. A signature that is not hex or not DER is simply
// invalid and yields false.
func VerifyHex(publicKeyHex, hashHex, signatureHex string) (bool, error) {
	pub, err := ParsePublicKeyHex(publicKeyHex)
	if err != nil {
		return false, err
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false, keyerr.Wrap(keyerr.CodeEncoding, "hash is not valid hex", err)
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, nil
	}
	return Verify(pub, hash, sig), nil
}

// CanonicalizeDER rewrites a DER signature into low-S form.
//
// The (r, s) pair is decoded; if s > N/2 it is replaced with N - s; the pair
// is re-encoded with minimal DER integers. Applying it twice is a no-op.
func CanonicalizeDER(signature []byte) ([]byte, error) {
	r, s, err := decodeDER(signature)
	if err != nil {
		return nil, err
	}

	if s.Cmp(halfOrder) > 0 {
		s.Sub(curveOrder, s)
	}

	return encodeDER(r, s)
}

// IsLowS reports whether a DER signature is well formed and has s <= N/2.
func IsLowS(signature []byte) bool {
	_, s, err := decodeDER(signature)
	if err != nil {
		return false
	}
	return s.Cmp(halfOrder) <= 0
}

// decodeDER reads SEQUENCE { INTEGER r, INTEGER s } with both values in [1, N-1].
func decodeDER(signature []byte) (*big.Int, *big.Int, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)

	input := cryptobyte.String(signature)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, keyerr.New(keyerr.CodeEncoding, "malformed DER signature")
	}

	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(curveOrder) >= 0 || s.Cmp(curveOrder) >= 0 {
		return nil, nil, keyerr.New(keyerr.CodeEncoding, "signature values out of range")
	}

	return r, s, nil
}

func encodeDER(r, s *big.Int) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})

	out, err := b.Bytes()
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeEncoding, "failed to encode DER signature", err)
	}
	return out, nil
}
