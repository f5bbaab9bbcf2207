// Package keystore is the high-level API the wallet layer calls to build,
// sign and verify DAG ledger transactions.
//
// It composes the lower packages:
//
//  1. PrepareTransaction - validates, encodes and hashes a transfer
//  2. SignTransaction - signs a prepared transfer and attaches the proof
//  3. Transfer - fetches the parent reference, then prepares and signs
//  4. VerifyTransaction - checks every proof of a signed transaction
//  5. SignData / VerifyData - signs arbitrary values outside the currency path
//
// A Keystore holds no secrets and no mutable state; it is safe for
// concurrent use.
package keystore

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/suffix-labs/dag-keystore/pkg/address"
	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/datasign"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
	"github.com/suffix-labs/dag-keystore/pkg/tx"
)

const (
	opPrepareTransaction = "prepare_transaction"
	opSignTransaction    = "sign_transaction"
	opTransfer           = "transfer"
	opVerifyTransaction  = "verify_transaction"
	opSignData           = "sign_data"
	opVerifyData         = "verify_data"
)

// Keystore signs and verifies transactions with a fixed hash mode.
type Keystore struct {
	logger   *zap.Logger
	metrics  Metrics
	hashMode crypto.HashMode
}

// Option configures a Keystore.
type Option func(*Keystore)

// WithLogger sets the logger. Encoding failures are logged at error level.
func WithLogger(logger *zap.Logger) Option {
	return func(k *Keystore) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(k *Keystore) {
		if m != nil {
			k.metrics = m
		}
	}
}

// WithHashMode selects the signing hash. The default is crypto.HashSHA512.
func WithHashMode(mode crypto.HashMode) Option {
	return func(k *Keystore) {
		k.hashMode = mode
	}
}

// New creates a Keystore. Without options it logs nothing, records no
// metrics and signs with crypto.HashSHA512.
func New(opts ...Option) *Keystore {
	k := &Keystore{
		logger:   zap.NewNop(),
		metrics:  nopMetrics{},
		hashMode: crypto.HashSHA512,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// HashMode returns the signing hash mode.
func (k *Keystore) HashMode() crypto.HashMode {
	return k.hashMode
}

// observe records the outcome of operation and logs encoding faults, which
// indicate a bug rather than bad input.
func (k *Keystore) observe(operation string, err error, started time.Time) {
	k.metrics.Observe(operation, err, started)
	if err != nil && errors.Is(err, keyerr.ErrEncoding) {
		k.logger.Error("encoding failure",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}

// Prepared is a validated transaction together with its encoding and
// signing hash.
type Prepared struct {
	Tx      *tx.Transaction
	Encoded string
	// Hash is the signing hash as lowercase hex.
	Hash string
}

// PrepareTransaction builds a transaction with a fresh salt and computes its
// signing hash.
//
// Parameters:
//   - source, destination: DAG addresses
//   - amount, fee: 10^-8 units; use tx.ToUnits for decimal input
//   - parent: last accepted transaction of source
//
// Returns an INVALID_TRANSACTION error before anything is encoded if the
// transfer breaks a transaction invariant.
func (k *Keystore) PrepareTransaction(
	source, destination string,
	amount, fee uint64,
	parent tx.Reference,
) (prepared *Prepared, err error) {
	defer func(started time.Time) { k.observe(opPrepareTransaction, err, started) }(time.Now())
	return k.prepare(source, destination, amount, fee, parent)
}

func (k *Keystore) prepare(source, destination string, amount, fee uint64, parent tx.Reference) (*Prepared, error) {
	t, err := tx.New(source, destination, amount, fee, parent)
	if err != nil {
		return nil, err
	}

	encoded, err := t.Encoded()
	if err != nil {
		return nil, err
	}

	hash, err := t.Hash(k.hashMode)
	if err != nil {
		return nil, err
	}

	k.logger.Debug("prepared transaction",
		zap.String("source", source),
		zap.String("destination", destination),
		zap.Uint64("amount", amount),
		zap.Uint64("fee", fee),
		zap.Uint64("parent_ordinal", parent.Ordinal),
	)

	return &Prepared{Tx: t, Encoded: encoded, Hash: hex.EncodeToString(hash)}, nil
}

// SignTransaction signs p with acct and returns the payload to post.
//
// The hash is recomputed from p.Tx; if it no longer matches p.Hash the
// transaction was changed after it was prepared and signing is refused. The
// fresh signature is verified before it is attached.
//
// Returns an error if:
//   - acct does not own the source address
//   - the transaction changed after PrepareTransaction
//   - the signature does not verify against acct's public key
func (k *Keystore) SignTransaction(acct *Account, p *Prepared) (signed *tx.SignedTransaction, err error) {
	defer func(started time.Time) { k.observe(opSignTransaction, err, started) }(time.Now())
	return k.sign(acct, p)
}

func (k *Keystore) sign(acct *Account, p *Prepared) (*tx.SignedTransaction, error) {
	if p == nil || p.Tx == nil {
		return nil, keyerr.New(keyerr.CodeInvalidTransaction, "prepared transaction is required")
	}

	keys, err := acct.keyPair()
	if err != nil {
		return nil, err
	}

	owner, err := address.FromPublicKey(keys.Public)
	if err != nil {
		return nil, err
	}
	if owner != p.Tx.Source {
		return nil, keyerr.Newf(keyerr.CodeInvalidTransaction,
			"account %s cannot sign for source %s", owner, p.Tx.Source)
	}

	hash, err := p.Tx.Hash(k.hashMode)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(hash, decodeHexOrNil(p.Hash)) {
		return nil, keyerr.New(keyerr.CodeInvalidTransaction, "transaction changed after it was hashed")
	}

	sig, err := crypto.Sign(keys.Private, hash)
	if err != nil {
		return nil, err
	}
	if !crypto.Verify(keys.Public, hash, sig) {
		return nil, keyerr.New(keyerr.CodeEncoding, "produced signature does not verify")
	}

	signed := tx.NewSigned(*p.Tx)
	signed.AddProof(tx.SignatureProof{
		ID:        keys.Public.ID(),
		Signature: hex.EncodeToString(sig),
	})

	k.logger.Debug("signed transaction",
		zap.String("source", p.Tx.Source),
		zap.String("hash", p.Hash),
	)

	return signed, nil
}

func decodeHexOrNil(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Transfer looks up the parent reference of acct's address, then prepares
// and signs a transfer to destination.
func (k *Keystore) Transfer(
	ctx context.Context,
	src ReferenceSource,
	acct *Account,
	destination string,
	amount, fee uint64,
) (signed *tx.SignedTransaction, err error) {
	defer func(started time.Time) { k.observe(opTransfer, err, started) }(time.Now())

	if acct == nil {
		return nil, keyerr.New(keyerr.CodeInvalidKey, "account is required")
	}

	parent, err := src.LastReference(ctx, acct.Address)
	if err != nil {
		return nil, fmt.Errorf("fetch last reference of %s: %w", acct.Address, err)
	}

	prepared, err := k.prepare(acct.Address, destination, amount, fee, parent)
	if err != nil {
		return nil, err
	}

	return k.sign(acct, prepared)
}

// VerifyTransaction reports whether every proof on signed verifies against
// the transaction's signing hash. A transaction without proofs is not valid.
//
// A proof whose id is not a usable public key is an error; a signature that
// is malformed or does not match is false.
func (k *Keystore) VerifyTransaction(signed *tx.SignedTransaction) (ok bool, err error) {
	defer func(started time.Time) { k.observe(opVerifyTransaction, err, started) }(time.Now())

	if signed == nil {
		return false, keyerr.New(keyerr.CodeInvalidTransaction, "signed transaction is required")
	}

	hash, err := signed.Value.Hash(k.hashMode)
	if err != nil {
		return false, err
	}
	if len(signed.Proofs) == 0 {
		return false, nil
	}

	for _, proof := range signed.Proofs {
		pub, err := crypto.ParsePublicKeyHex(proof.ID)
		if err != nil {
			return false, err
		}
		sig, err := hex.DecodeString(proof.Signature)
		if err != nil || !crypto.Verify(pub, hash, sig) {
			k.logger.Debug("proof does not verify", zap.String("id", proof.ID))
			return false, nil
		}
	}
	return true, nil
}

// SignData signs value under mode with acct.
func (k *Keystore) SignData(acct *Account, value any, mode datasign.EncodingMode) (signed *datasign.SignedData, err error) {
	defer func(started time.Time) { k.observe(opSignData, err, started) }(time.Now())

	keys, err := acct.keyPair()
	if err != nil {
		return nil, err
	}
	return datasign.Sign(keys.Private, value, mode)
}

// VerifyData reports whether every proof on signed verifies for its value
// encoded under mode.
func (k *Keystore) VerifyData(signed *datasign.SignedData, mode datasign.EncodingMode) (ok bool, err error) {
	defer func(started time.Time) { k.observe(opVerifyData, err, started) }(time.Now())

	if signed == nil || len(signed.Proofs) == 0 {
		return false, nil
	}
	for _, proof := range signed.Proofs {
		pub, err := crypto.ParsePublicKeyHex(proof.ID)
		if err != nil {
			return false, err
		}
		ok, err := datasign.Verify(pub, signed.Value, mode, proof.Signature)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
