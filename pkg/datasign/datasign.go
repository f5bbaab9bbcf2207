// Package datasign signs arbitrary JSON-serializable values.
//
// Data signing is kept apart from currency transactions: the value is encoded
// with a caller-chosen EncodingMode, wrapped in a prefixed envelope so it can
// never be mistaken for a transaction wire form, hashed with SHA-512, and the
// first 32 bytes of that hash are signed.
package datasign

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
	"github.com/suffix-labs/dag-keystore/pkg/tx"
)

const (
	dataPrefix     = "\x19Constellation Signed Data:\n"
	personalPrefix = "\x19Constellation Signed Message:\n"
)

type modeKind int

const (
	kindRaw modeKind = iota
	kindHex
	kindBase64
	kindCustom
)

// EncodingMode selects how a value is turned into the string that is signed.
//
// The zero value is Raw: compact JSON. Other modes are built with Hex, Base64
// or Custom; the set is closed.
type EncodingMode struct {
	kind   modeKind
	encode func(any) (string, error)
}

// Raw encodes the value as compact JSON.
var Raw = EncodingMode{}

// Hex encodes the compact JSON bytes as lowercase hex.
func Hex() EncodingMode { return EncodingMode{kind: kindHex} }

// Base64 encodes the compact JSON bytes as standard padded base64.
func Base64() EncodingMode { return EncodingMode{kind: kindBase64} }

// Custom hands the value to fn and signs whatever string it returns.
func Custom(fn func(any) (string, error)) EncodingMode {
	return EncodingMode{kind: kindCustom, encode: fn}
}

func (m EncodingMode) String() string {
	switch m.kind {
	case kindHex:
		return "hex"
	case kindBase64:
		return "base64"
	case kindCustom:
		return "custom"
	default:
		return "raw"
	}
}

// compactJSON marshals v without HTML escaping so "<", ">" and "&" stay
// literal, as other wallets serialize them.
func compactJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, keyerr.Wrap(keyerr.CodeEncoding, "failed to marshal value", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Encode renders value under mode.
func Encode(value any, mode EncodingMode) (string, error) {
	if mode.kind == kindCustom {
		if mode.encode == nil {
			return "", keyerr.New(keyerr.CodeEncoding, "custom encoding mode has no encoder")
		}
		s, err := mode.encode(value)
		if err != nil {
			return "", keyerr.Wrap(keyerr.CodeEncoding, "custom encoder failed", err)
		}
		return s, nil
	}

	raw, err := compactJSON(value)
	if err != nil {
		return "", err
	}

	switch mode.kind {
	case kindHex:
		return hex.EncodeToString(raw), nil
	case kindBase64:
		return base64.StdEncoding.EncodeToString(raw), nil
	default:
		return string(raw), nil
	}
}

func envelope(prefix, body string) string {
	return prefix + strconv.Itoa(utf8.RuneCountInString(body)) + "\n" + body
}

// Message wraps an encoded value in the signed-data envelope.
func Message(encoded string) string {
	return envelope(dataPrefix, encoded)
}

// PersonalMessage wraps free text in the signed-message envelope.
func PersonalMessage(msg string) string {
	return envelope(personalPrefix, msg)
}

// Hash returns the SHA-512 digest of message. Only its first 32 bytes are
// signed.
func Hash(message string) []byte {
	return crypto.SHA512Digest([]byte(message))
}

// SignedData pairs a value with the proofs over its encoding.
type SignedData struct {
	Value  any                 `json:"value"`
	Proofs []tx.SignatureProof `json:"proofs"`
}

// Sign encodes value under mode and signs its envelope hash.
func Sign(priv *crypto.PrivateKey, value any, mode EncodingMode) (*SignedData, error) {
	if priv == nil {
		return nil, keyerr.New(keyerr.CodeInvalidKey, "private key is required")
	}

	encoded, err := Encode(value, mode)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(priv, Hash(Message(encoded)))
	if err != nil {
		return nil, err
	}

	return &SignedData{
		Value: value,
		Proofs: []tx.SignatureProof{{
			ID:        priv.PublicKey().ID(),
			Signature: hex.EncodeToString(sig),
		}},
	}, nil
}

// Verify checks a hex signature over value encoded under mode.
//
// A value that cannot be encoded is an error. A signature that is malformed
// or does not match is false.
func Verify(pub *crypto.PublicKey, value any, mode EncodingMode, signatureHex string) (bool, error) {
	encoded, err := Encode(value, mode)
	if err != nil {
		return false, err
	}
	return verifyHex(pub, Hash(Message(encoded)), signatureHex), nil
}

// SignPersonal signs free text and returns the DER signature as hex.
func SignPersonal(priv *crypto.PrivateKey, msg string) (string, error) {
	sig, err := crypto.Sign(priv, Hash(PersonalMessage(msg)))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// VerifyPersonal checks a hex signature produced by SignPersonal.
func VerifyPersonal(pub *crypto.PublicKey, msg, signatureHex string) bool {
	return verifyHex(pub, Hash(PersonalMessage(msg)), signatureHex)
}

func verifyHex(pub *crypto.PublicKey, hash []byte, signatureHex string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	return crypto.Verify(pub, hash, sig)
}
