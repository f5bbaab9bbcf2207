package bip

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

const (
	// PurposeBIP44 is the purpose field for BIP0044 derivation.
	PurposeBIP44 = 44

	// CoinTypeDAG is the registered SLIP-44 coin type of the DAG ledger.
	CoinTypeDAG = 1137

	// CoinTypeETH is the SLIP-44 coin type of Ethereum. Wallets that hold
	// both assets derive their ETH key from the same seed with this coin type.
	CoinTypeETH = 60
)

// Path is a BIP44 derivation path purpose'/coin_type'/account'/change/index.
//
// Fields hold raw indices. Purpose, CoinType and Account are hardened when
// deriving; Change and Index are not.
type Path struct {
	Purpose  uint32
	CoinType uint32
	Account  uint32
	Change   uint32
	Index    uint32
}

// DAGPath returns m/44'/1137'/0'/0/index.
func DAGPath(index uint32) Path {
	return Path{Purpose: PurposeBIP44, CoinType: CoinTypeDAG, Index: index}
}

// ETHPath returns m/44'/60'/0'/0/index.
func ETHPath(index uint32) Path {
	return Path{Purpose: PurposeBIP44, CoinType: CoinTypeETH, Index: index}
}

// String renders the path in its canonical five-segment form.
func (p Path) String() string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", p.Purpose, p.CoinType, p.Account, p.Change, p.Index)
}

// Validate checks that every raw index fits below the hardened offset.
func (p Path) Validate() error {
	for _, v := range []uint32{p.Purpose, p.CoinType, p.Account, p.Change, p.Index} {
		if v >= hdkeychain.HardenedKeyStart {
			return keyerr.Newf(keyerr.CodeInvalidDerivationPath,
				"path %s: index %d must be below 2^31", p, v)
		}
	}
	return nil
}

// segments returns the child indices to derive, hardening applied.
func (p Path) segments() []uint32 {
	return []uint32{
		p.Purpose + hdkeychain.HardenedKeyStart,
		p.CoinType + hdkeychain.HardenedKeyStart,
		p.Account + hdkeychain.HardenedKeyStart,
		p.Change,
		p.Index,
	}
}

// ParsePath parses a path template such as m/44'/1137'/0'/0 or
// m/44'/1137'/0'/0/5.
//
// Purpose, coin type and account must be hardened (marked with ' or h);
// change and index must not be. When the index segment is omitted it
// defaults to 0.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) < 5 || len(parts) > 6 || parts[0] != "m" {
		return Path{}, keyerr.Newf(keyerr.CodeInvalidDerivationPath,
			"path %q: expected m/purpose'/coin'/account'/change[/index]", s)
	}

	values := make([]uint32, 5)
	for i, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		wantHardened := i < 3
		if hardened != wantHardened {
			return Path{}, keyerr.Newf(keyerr.CodeInvalidDerivationPath,
				"path %q: segment %d hardened=%t, want %t", s, i+1, hardened, wantHardened)
		}

		raw := strings.TrimRight(part, "'h")
		v, err := strconv.ParseUint(raw, 10, 31)
		if err != nil {
			return Path{}, keyerr.Wrap(keyerr.CodeInvalidDerivationPath,
				fmt.Sprintf("path %q: segment %d", s, i+1), err)
		}
		values[i] = uint32(v)
	}

	return Path{
		Purpose:  values[0],
		CoinType: values[1],
		Account:  values[2],
		Change:   values[3],
		Index:    values[4],
	}, nil
}
