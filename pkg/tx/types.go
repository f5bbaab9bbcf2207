// Package tx models DAG ledger currency transactions and their canonical
// encoding.
//
// A transaction goes through three representations before it is signed:
//
//   - the Transaction value itself
//   - the encoded (signing) string, a length-prefixed concatenation of fields
//   - the wire form, the encoded string framed the way the ledger's Kryo
//     serializer frames a String, rendered as hex
//
// The wire form is what gets hashed. Every byte of it must match other
// implementations of the ledger protocol, otherwise peers compute a different
// hash and the signature does not verify.
package tx

import (
	"encoding/hex"

	"github.com/suffix-labs/dag-keystore/pkg/address"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

const (
	// ParentCount is the literal that starts every encoded transaction.
	ParentCount = "2"

	// ParentHashLength is the length of a parent hash in hex characters.
	ParentHashLength = 64
)

// Reference points at the last accepted transaction of the source address.
type Reference struct {
	Hash    string `json:"hash"`
	Ordinal uint64 `json:"ordinal"`
}

// Transaction is an unsigned currency transfer.
//
// Amount and Fee are in 10^-8 units. The salt is serialized as a decimal
// string in JSON, matching the ledger's broadcast payload.
//
// A transaction must not be changed once its hash has been computed: any
// change invalidates signatures already produced over it.
type Transaction struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Amount      uint64    `json:"amount"`
	Fee         uint64    `json:"fee"`
	Parent      Reference `json:"parent"`
	Salt        int64     `json:"salt,string"`
}

// SignatureProof binds a signature to the public key that produced it.
type SignatureProof struct {
	// ID is the uncompressed public key hex without the 04 prefix.
	ID string `json:"id"`
	// Signature is the DER signature as hex.
	Signature string `json:"signature"`
}

// SignedTransaction is the payload posted to the ledger.
type SignedTransaction struct {
	Value  Transaction      `json:"value"`
	Proofs []SignatureProof `json:"proofs"`
}

// NewSigned wraps t with an empty proof list.
func NewSigned(t Transaction) *SignedTransaction {
	return &SignedTransaction{Value: t, Proofs: []SignatureProof{}}
}

// AddProof appends a proof. Multiple proofs make a multi-signature transfer.
func (s *SignedTransaction) AddProof(proof SignatureProof) {
	s.Proofs = append(s.Proofs, proof)
}

// New creates a transaction with a fresh random salt and validates it.
func New(source, destination string, amount, fee uint64, parent Reference) (*Transaction, error) {
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		Source:      source,
		Destination: destination,
		Amount:      amount,
		Fee:         fee,
		Parent:      parent,
		Salt:        salt,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the invariants every transaction must hold before it is
// encoded.
//
// Returns an INVALID_TRANSACTION error if:
//   - source and destination are the same
//   - amount is zero
//   - source or destination is not a valid DAG address
//   - the parent hash is not 64 hex characters
func (t *Transaction) Validate() error {
	if t.Source == t.Destination {
		return keyerr.New(keyerr.CodeInvalidTransaction, "source and destination must differ")
	}
	if t.Amount == 0 {
		return keyerr.New(keyerr.CodeInvalidTransaction, "amount must be positive")
	}
	if err := address.Validate(t.Source); err != nil {
		return keyerr.Wrap(keyerr.CodeInvalidTransaction, "invalid source", err)
	}
	if err := address.Validate(t.Destination); err != nil {
		return keyerr.Wrap(keyerr.CodeInvalidTransaction, "invalid destination", err)
	}
	if len(t.Parent.Hash) != ParentHashLength {
		return keyerr.Newf(keyerr.CodeInvalidTransaction,
			"parent hash has %d characters, want %d", len(t.Parent.Hash), ParentHashLength)
	}
	if _, err := hex.DecodeString(t.Parent.Hash); err != nil {
		return keyerr.Wrap(keyerr.CodeInvalidTransaction, "parent hash is not hex", err)
	}
	return nil
}
