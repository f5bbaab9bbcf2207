package tx

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

// Encoded returns the signing string: ParentCount followed by each field
// prefixed with the decimal length of its text.
//
// Field order and text forms:
//
//	source       address
//	destination  address
//	amount       lowercase hex, no padding
//	parent hash  as given
//	ordinal      decimal
//	fee          decimal
//	salt         SaltHex
//
// The transaction is validated first, so no encoding is ever produced for an
// invalid transaction.
func (t *Transaction) Encoded() (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	fields := []string{
		t.Source,
		t.Destination,
		strconv.FormatUint(t.Amount, 16),
		t.Parent.Hash,
		strconv.FormatUint(t.Parent.Ordinal, 10),
		strconv.FormatUint(t.Fee, 10),
		SaltHex(t.Salt),
	}

	var b strings.Builder
	b.WriteString(ParentCount)
	for _, f := range fields {
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteString(f)
	}
	return b.String(), nil
}

// WireForm returns the hex wire form that is hashed for signing.
func (t *Transaction) WireForm() (string, error) {
	encoded, err := t.Encoded()
	if err != nil {
		return "", err
	}
	return Serialize(encoded, false)
}

// Hash returns the signing hash of the wire form under mode.
func (t *Transaction) Hash(mode crypto.HashMode) ([]byte, error) {
	wire, err := t.WireForm()
	if err != nil {
		return nil, err
	}
	return crypto.HashForSigning(wire, mode)
}

// ID returns the transaction hash the ledger reports once the transaction is
// accepted: the hex SHA-256 of the wire bytes.
func (t *Transaction) ID() (string, error) {
	wire, err := t.WireForm()
	if err != nil {
		return "", err
	}
	raw, err := hex.DecodeString(wire)
	if err != nil {
		return "", keyerr.Wrap(keyerr.CodeEncoding, "wire form is not hex", err)
	}
	return crypto.SHA256Hex(raw), nil
}
