package keystore

import (
	"github.com/suffix-labs/dag-keystore/pkg/address"
	"github.com/suffix-labs/dag-keystore/pkg/bip"
	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

// Account is the key material of one DAG address.
type Account struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	Address    string `json:"address"`

	keys *crypto.KeyPair
}

func newAccount(keys *crypto.KeyPair) (*Account, error) {
	addr, err := address.FromPublicKey(keys.Public)
	if err != nil {
		return nil, err
	}
	return &Account{
		PrivateKey: keys.Private.Hex(),
		PublicKey:  keys.Public.Hex(),
		Address:    addr,
		keys:       keys,
	}, nil
}

// FromMnemonic derives the account at m/44'/1137'/0'/0/index.
func FromMnemonic(phrase, passphrase string, index uint32) (*Account, error) {
	keys, err := bip.KeyPairFromMnemonic(phrase, passphrase, bip.DAGPath(index))
	if err != nil {
		return nil, err
	}
	return newAccount(keys)
}

// FromPrivateKey loads an account from a hex private key.
func FromPrivateKey(privateKeyHex string) (*Account, error) {
	priv, err := crypto.ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return newAccount(crypto.NewKeyPair(priv))
}

// NewAccount creates a fresh 12-word mnemonic and returns it with its first
// account.
func NewAccount() (*Account, string, error) {
	phrase, err := bip.NewMnemonic(12)
	if err != nil {
		return nil, "", err
	}
	acct, err := FromMnemonic(phrase, "", 0)
	if err != nil {
		return nil, "", err
	}
	return acct, phrase, nil
}

// keyPair returns the parsed keys. Accounts built by hand or decoded from JSON
// are parsed from PrivateKey on every call.
func (a *Account) keyPair() (*crypto.KeyPair, error) {
	if a == nil {
		return nil, keyerr.New(keyerr.CodeInvalidKey, "account is required")
	}
	if a.keys != nil {
		return a.keys, nil
	}
	priv, err := crypto.ParsePrivateKeyHex(a.PrivateKey)
	if err != nil {
		return nil, err
	}
	return crypto.NewKeyPair(priv), nil
}
