// Package bip derives DAG ledger keys from BIP39 mnemonics.
//
// A mnemonic is turned into a 64-byte seed (BIP39), the seed into a BIP32
// master node, and the master node is walked down a BIP44 path to the leaf
// key that signs transactions:
//
//	m / 44' / 1137' / account' / change / index
//
// Derivation is deterministic: the same seed and path always produce the same
// key pair, which is what makes wallet recovery from a phrase possible.
package bip

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"

	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

// Seed is the BIP39 seed derived from a mnemonic and passphrase.
type Seed []byte

// entropyBits maps supported word counts to BIP39 entropy sizes.
var entropyBits = map[int]int{
	12: 128,
	24: 256,
}

// normalizeMnemonic collapses runs of whitespace to single spaces.
func normalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(phrase), " ")
}

// NewMnemonic generates a random English mnemonic of 12 or 24 words.
func NewMnemonic(words int) (string, error) {
	bits, ok := entropyBits[words]
	if !ok {
		return "", keyerr.Newf(keyerr.CodeInvalidMnemonic,
			"unsupported word count %d (supported: 12 or 24)", words)
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", keyerr.Wrap(keyerr.CodeInvalidMnemonic, "failed to generate entropy", err)
	}

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", keyerr.Wrap(keyerr.CodeInvalidMnemonic, "failed to encode mnemonic", err)
	}
	return phrase, nil
}

// ValidateMnemonic reports whether phrase passes the English wordlist and
// checksum validation.
func ValidateMnemonic(phrase string) bool {
	return bip39.IsMnemonicValid(normalizeMnemonic(phrase))
}

// SeedFromMnemonic validates phrase and derives its seed.
//
// The passphrase is the optional BIP39 "25th word"; pass "" for none.
func SeedFromMnemonic(phrase, passphrase string) (Seed, error) {
	seed, err := bip39.NewSeedWithErrorChecking(normalizeMnemonic(phrase), passphrase)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeInvalidMnemonic, "mnemonic failed validation", err)
	}
	return seed, nil
}

// DerivePrivateKey walks the BIP32 tree from seed along path and returns the
// leaf key pair.
//
// Returns an error if:
//   - the path holds an index at or above 2^31
//   - the seed length is outside what BIP32 accepts
//   - a child derivation lands on an invalid key (probability ~2^-127)
func DerivePrivateKey(seed Seed, path Path) (*crypto.KeyPair, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	node, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeInvalidKey, "failed to create master key", err)
	}

	for _, index := range path.segments() {
		child, err := node.Derive(index)
		node.Zero()
		if err != nil {
			return nil, keyerr.Wrap(keyerr.CodeInvalidKey, "failed to derive "+path.String(), err)
		}
		node = child
	}
	defer node.Zero()

	ecPriv, err := node.ECPrivKey()
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeInvalidKey, "leaf node has no private key", err)
	}

	priv, err := crypto.PrivateKeyFromBytes(ecPriv.Serialize())
	if err != nil {
		return nil, err
	}
	return crypto.NewKeyPair(priv), nil
}

// KeyPairFromMnemonic derives the key pair at path for phrase.
func KeyPairFromMnemonic(phrase, passphrase string, path Path) (*crypto.KeyPair, error) {
	seed, err := SeedFromMnemonic(phrase, passphrase)
	if err != nil {
		return nil, err
	}
	return DerivePrivateKey(seed, path)
}
