package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/suffix-labs/dag-keystore/pkg/address"
	"github.com/suffix-labs/dag-keystore/pkg/bip"
	"github.com/suffix-labs/dag-keystore/pkg/datasign"
	"github.com/suffix-labs/dag-keystore/pkg/keystore"
	"github.com/suffix-labs/dag-keystore/pkg/payreq"
	"github.com/suffix-labs/dag-keystore/pkg/tx"
)

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// keyOptions selects the signing account. A private key wins over a
// mnemonic when both are set.
type keyOptions struct {
	Mnemonic   string `long:"mnemonic" env:"DAGKEYS_MNEMONIC" description:"BIP39 mnemonic phrase"`
	Passphrase string `long:"passphrase" env:"DAGKEYS_PASSPHRASE" description:"Optional BIP39 passphrase"`
	Index      uint32 `long:"index" env:"DAGKEYS_INDEX" default:"0" description:"Account index in m/44'/1137'/0'/0/index"`
	PrivateKey string `long:"private-key" env:"DAGKEYS_PRIVATE_KEY" description:"Hex private key"`
}

func (o keyOptions) account() (*keystore.Account, error) {
	switch {
	case o.PrivateKey != "":
		return keystore.FromPrivateKey(o.PrivateKey)
	case o.Mnemonic != "":
		return keystore.FromMnemonic(o.Mnemonic, o.Passphrase, o.Index)
	default:
		return nil, errors.New("either --private-key or --mnemonic is required")
	}
}

type mnemonicCommand struct {
	app   *app
	Words int `long:"words" default:"12" choice:"12" choice:"24" description:"Number of words"`
}

func (c *mnemonicCommand) Execute([]string) error {
	phrase, err := bip.NewMnemonic(c.Words)
	if err != nil {
		return err
	}
	acct, err := keystore.FromMnemonic(phrase, "", 0)
	if err != nil {
		return err
	}

	return c.app.print(struct {
		Mnemonic string `json:"mnemonic"`
		*keystore.Account
	}{phrase, acct})
}

type keysCommand struct {
	app  *app
	Keys keyOptions `group:"Key Options"`
}

func (c *keysCommand) Execute([]string) error {
	acct, err := c.Keys.account()
	if err != nil {
		return err
	}
	return c.app.print(acct)
}

type addressCommand struct {
	app  *app
	Args struct {
		PublicKey string `positional-arg-name:"public-key" required:"yes"`
	} `positional-args:"yes"`
}

func (c *addressCommand) Execute([]string) error {
	addr, err := address.Derive(c.Args.PublicKey)
	if err != nil {
		return err
	}
	return c.app.print(map[string]string{"address": addr})
}

type validateCommand struct {
	app  *app
	Args struct {
		Address string `positional-arg-name:"address" required:"yes"`
	} `positional-args:"yes"`
}

func (c *validateCommand) Execute([]string) error {
	result := struct {
		Address string `json:"address"`
		Valid   bool   `json:"valid"`
		Error   string `json:"error,omitempty"`
	}{Address: c.Args.Address, Valid: true}

	if err := address.Validate(c.Args.Address); err != nil {
		result.Valid = false
		result.Error = err.Error()
	}
	return c.app.print(result)
}

type signTxCommand struct {
	app           *app
	Keys          keyOptions `group:"Key Options"`
	URI           string     `long:"uri" description:"Payment request (dag:<address>?amount=...); fills --to, --amount and --fee"`
	To            string     `long:"to" description:"Destination address"`
	Amount        string     `long:"amount" description:"Amount in DAG, up to 8 decimals"`
	Fee           string     `long:"fee" description:"Fee in DAG, up to 8 decimals (default 0)"`
	ParentHash    string     `long:"parent-hash" required:"yes" description:"Hash of the last accepted transaction of the source"`
	ParentOrdinal uint64     `long:"parent-ordinal" description:"Ordinal of the last accepted transaction of the source"`
}

func (c *signTxCommand) Execute([]string) error {
	acct, err := c.Keys.account()
	if err != nil {
		return err
	}

	dest, amount, fee, err := c.transfer()
	if err != nil {
		return err
	}

	parent := tx.Reference{Hash: c.ParentHash, Ordinal: c.ParentOrdinal}
	prepared, err := c.app.ks.PrepareTransaction(acct.Address, dest, amount, fee, parent)
	if err != nil {
		return err
	}
	signed, err := c.app.ks.SignTransaction(acct, prepared)
	if err != nil {
		return err
	}

	id, err := prepared.Tx.ID()
	if err != nil {
		return err
	}
	c.app.logger.Info("Signed transaction",
		zap.String("id", id),
		zap.String("source", acct.Address),
		zap.String("destination", dest),
		zap.String("hash_mode", c.app.ks.HashMode().String()),
	)

	return c.app.print(signed)
}

// transfer resolves the destination and values from the flags, letting a
// payment request fill whatever the flags leave unset.
func (c *signTxCommand) transfer() (dest string, amount, fee uint64, err error) {
	dest = c.To
	if c.Amount != "" {
		if amount, err = tx.ToUnits(c.Amount); err != nil {
			return "", 0, 0, err
		}
	}
	if c.Fee != "" {
		if fee, err = tx.ToUnits(c.Fee); err != nil {
			return "", 0, 0, err
		}
	}

	if c.URI != "" {
		req, err := payreq.Parse(c.URI)
		if err != nil {
			return "", 0, 0, err
		}
		p, err := req.Single()
		if err != nil {
			return "", 0, 0, err
		}
		if dest == "" {
			dest = p.Address
		}
		if c.Amount == "" && p.Amount != nil {
			amount = *p.Amount
		}
		if c.Fee == "" && p.Fee != nil {
			fee = *p.Fee
		}
	}

	if dest == "" {
		return "", 0, 0, errors.New("either --to or --uri is required")
	}
	return dest, amount, fee, nil
}

type verifyCommand struct {
	app  *app
	Args struct {
		File string `positional-arg-name:"file" description:"Signed transaction JSON; stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *verifyCommand) Execute([]string) error {
	r := c.app.in
	if c.Args.File != "" && c.Args.File != "-" {
		f, err := os.Open(c.Args.File)
		if err != nil {
			return fmt.Errorf("open %s: %w", c.Args.File, err)
		}
		defer f.Close()
		r = f
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read signed transaction: %w", err)
	}
	var signed tx.SignedTransaction
	if err := json.Unmarshal(raw, &signed); err != nil {
		return fmt.Errorf("decode signed transaction: %w", err)
	}

	valid, err := c.app.ks.VerifyTransaction(&signed)
	if err != nil {
		return err
	}
	id, err := signed.Value.ID()
	if err != nil {
		return err
	}

	return c.app.print(struct {
		ID    string `json:"id"`
		Valid bool   `json:"valid"`
	}{id, valid})
}

type signDataCommand struct {
	app      *app
	Keys     keyOptions `group:"Key Options"`
	Data     string     `long:"data" required:"yes" description:"JSON value to sign"`
	Encoding string     `long:"encoding" default:"raw" choice:"raw" choice:"hex" choice:"base64" description:"How the value is encoded before signing"`
}

func (c *signDataCommand) Execute([]string) error {
	acct, err := c.Keys.account()
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal([]byte(c.Data), &value); err != nil {
		return fmt.Errorf("decode --data: %w", err)
	}

	mode := datasign.Raw
	switch c.Encoding {
	case "hex":
		mode = datasign.Hex()
	case "base64":
		mode = datasign.Base64()
	}

	signed, err := c.app.ks.SignData(acct, value, mode)
	if err != nil {
		return err
	}
	return c.app.print(signed)
}
