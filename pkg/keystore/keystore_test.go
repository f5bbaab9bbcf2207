package keystore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/datasign"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
	"github.com/suffix-labs/dag-keystore/pkg/tx"
)

const (
	testMnemonic      = "multiply angle perfect verify behind sibling skirt attract first lift remove fortune"
	testPrivateKeyHex = "18e19114377f0b4ae5b9426105ffa4d18c791f738374b5867ebea836e5722710"
	testPublicKeyHex  = "044462191fb1056699c28607c7e8e03b73602fa070b78cad863b5f84d08a577d5d0399ccd90ba1e69f34382d678216d4b2a030d98e38c0c960447dc49514f92ad7"
	testAddress       = "DAG0zJW14beJtZX2BY2KA9gLbpaZ8x6vgX4KVPVX"
	testDestination   = "DAG5WLxvp7hQgumY7qEFqWZ9yuRghSNzLddLbxDN"
	testParentHash    = "a7b0f25c3b445464bf819fbcb500503bf41e3c085410ae4b171f6fb28884de13"

	testEncoded         = "240DAG0zJW14beJtZX2BY2KA9gLbpaZ8x6vgX4KVPVX40DAG5WLxvp7hQgumY7qEFqWZ9yuRghSNzLddLbxDN698968064a7b0f25c3b445464bf819fbcb500503bf41e3c085410ae4b171f6fb28884de1331467200000012c056d419a962"
	testSHA256Hash      = "39b73f07984301a30bb3d16d5d5f32a004b65d23df958c39cfb13fd0ab1f8da7"
	testSHA512Hash      = "d5aadbc006d3711393a7599c66f2606ed2b6be384fff88a0f1a7346dcf7d95e17f6e0b789e2a5d7f85fa06813f6f5b7a30ff0b82c0270ee45625ae1a37c7a604"
	testSHA512Signature = "3045022100f3e736cf9c7cfe027fd53f9cacc0647b3ac1c1fc50a735b3b69c7aec26ef08d0022009041cce6157c7235eae40de580e9832570e9051360501cf47f40ac3015b3e74"
	testSHA256Signature = "3045022100b23aee63466cdec137bbc2f4df9b69dd5e763a3c0c14ee42d96dcdc86d60c00a022079654355eec64f3bd2bd268bc70d77832abcb897b41c985bdba5dadfc8ab8f52"
)

var testParent = tx.Reference{Hash: testParentHash, Ordinal: 146}

func goldenPrepared(hash string) *Prepared {
	return &Prepared{
		Tx: &tx.Transaction{
			Source:      testAddress,
			Destination: testDestination,
			Amount:      10000000,
			Fee:         2000000,
			Parent:      testParent,
			Salt:        211479158172002,
		},
		Encoded: testEncoded,
		Hash:    hash,
	}
}

func testAccount(t *testing.T) *Account {
	t.Helper()
	acct, err := FromMnemonic(testMnemonic, "", 0)
	require.NoError(t, err)
	return acct
}

func TestFromMnemonic(t *testing.T) {
	acct := testAccount(t)

	assert.Equal(t, testPrivateKeyHex, acct.PrivateKey)
	assert.Equal(t, testPublicKeyHex, acct.PublicKey)
	assert.Equal(t, testAddress, acct.Address)

	other, err := FromMnemonic(testMnemonic, "", 1)
	require.NoError(t, err)
	assert.NotEqual(t, acct.Address, other.Address)

	_, err = FromMnemonic("not a mnemonic", "", 0)
	assert.ErrorIs(t, err, keyerr.ErrInvalidMnemonic)
}

func TestFromPrivateKey(t *testing.T) {
	acct, err := FromPrivateKey(testPrivateKeyHex)
	require.NoError(t, err)
	assert.Equal(t, testAddress, acct.Address)

	_, err = FromPrivateKey(strings.Repeat("0", 64))
	assert.ErrorIs(t, err, keyerr.ErrInvalidKey)
}

func TestAccountJSON(t *testing.T) {
	out, err := json.Marshal(testAccount(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"private_key": "`+testPrivateKeyHex+`",
		"public_key": "`+testPublicKeyHex+`",
		"address": "`+testAddress+`"
	}`, string(out))

	// A decoded account signs without its cached keys.
	var decoded Account
	require.NoError(t, json.Unmarshal(out, &decoded))
	signed, err := New().SignTransaction(&decoded, goldenPrepared(testSHA512Hash))
	require.NoError(t, err)
	assert.Equal(t, testSHA512Signature, signed.Proofs[0].Signature)
}

func TestNewAccount(t *testing.T) {
	acct, phrase, err := NewAccount()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(phrase), 12)

	again, err := FromMnemonic(phrase, "", 0)
	require.NoError(t, err)
	assert.Equal(t, acct.Address, again.Address)
}

func TestSignTransactionGolden(t *testing.T) {
	acct := testAccount(t)

	tests := []struct {
		name string
		mode crypto.HashMode
		hash string
		sig  string
	}{
		{"sha512", crypto.HashSHA512, testSHA512Hash, testSHA512Signature},
		{"sha256", crypto.HashSHA256, testSHA256Hash, testSHA256Signature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := New(WithHashMode(tt.mode))

			signed, err := ks.SignTransaction(acct, goldenPrepared(tt.hash))
			require.NoError(t, err)
			require.Len(t, signed.Proofs, 1)
			assert.Equal(t, testPublicKeyHex[2:], signed.Proofs[0].ID)
			assert.Equal(t, tt.sig, signed.Proofs[0].Signature)

			ok, err := ks.VerifyTransaction(signed)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestPrepareTransaction(t *testing.T) {
	ks := New()

	prepared, err := ks.PrepareTransaction(testAddress, testDestination, 10000000, 0, testParent)
	require.NoError(t, err)

	encoded, err := prepared.Tx.Encoded()
	require.NoError(t, err)
	assert.Equal(t, encoded, prepared.Encoded)

	hash, err := prepared.Tx.Hash(crypto.HashSHA512)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(hash), prepared.Hash)

	_, err = ks.PrepareTransaction(testAddress, testAddress, 10000000, 0, testParent)
	assert.ErrorIs(t, err, keyerr.ErrInvalidTransaction)

	_, err = ks.PrepareTransaction(testAddress, testDestination, 0, 0, testParent)
	assert.ErrorIs(t, err, keyerr.ErrInvalidTransaction)
}

func TestSignTransactionRejects(t *testing.T) {
	ks := New()
	acct := testAccount(t)

	t.Run("foreign account", func(t *testing.T) {
		other, err := FromMnemonic(testMnemonic, "", 1)
		require.NoError(t, err)

		_, err = ks.SignTransaction(other, goldenPrepared(testSHA512Hash))
		assert.ErrorIs(t, err, keyerr.ErrInvalidTransaction)
	})

	t.Run("changed after hashing", func(t *testing.T) {
		p := goldenPrepared(testSHA512Hash)
		p.Tx.Amount++

		_, err := ks.SignTransaction(acct, p)
		assert.ErrorIs(t, err, keyerr.ErrInvalidTransaction)
	})

	t.Run("hash from another mode", func(t *testing.T) {
		_, err := ks.SignTransaction(acct, goldenPrepared(testSHA256Hash))
		assert.ErrorIs(t, err, keyerr.ErrInvalidTransaction)
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := ks.SignTransaction(acct, nil)
		assert.ErrorIs(t, err, keyerr.ErrInvalidTransaction)

		_, err = ks.SignTransaction(nil, goldenPrepared(testSHA512Hash))
		assert.ErrorIs(t, err, keyerr.ErrInvalidKey)
	})
}

func TestVerifyTransaction(t *testing.T) {
	ks := New()

	signedFn := func(t *testing.T) *tx.SignedTransaction {
		signed, err := ks.SignTransaction(testAccount(t), goldenPrepared(testSHA512Hash))
		require.NoError(t, err)
		return signed
	}

	tests := []struct {
		name    string
		mutate  func(*tx.SignedTransaction)
		want    bool
		wantErr error
	}{
		{name: "valid", mutate: func(*tx.SignedTransaction) {}, want: true},
		{name: "no proofs", mutate: func(s *tx.SignedTransaction) { s.Proofs = nil }},
		{name: "tampered signature", mutate: func(s *tx.SignedTransaction) {
			s.Proofs[0].Signature = s.Proofs[0].Signature[:20] + "00" + s.Proofs[0].Signature[22:]
		}},
		{name: "signature not hex", mutate: func(s *tx.SignedTransaction) { s.Proofs[0].Signature = "xyz" }},
		{name: "tampered amount", mutate: func(s *tx.SignedTransaction) { s.Value.Amount = 20000000 }},
		{name: "extra proof by other key", mutate: func(s *tx.SignedTransaction) {
			s.AddProof(tx.SignatureProof{
				ID:        "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8",
				Signature: s.Proofs[0].Signature,
			})
		}},
		{name: "proof id too short", mutate: func(s *tx.SignedTransaction) {
			s.Proofs[0].ID = s.Proofs[0].ID[:127]
		}, wantErr: keyerr.ErrInvalidPublicKey},
		{name: "invalid value", mutate: func(s *tx.SignedTransaction) {
			s.Value.Destination = s.Value.Source
		}, wantErr: keyerr.ErrInvalidTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := signedFn(t)
			tt.mutate(signed)

			ok, err := ks.VerifyTransaction(signed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(t *testing.T) (*Keystore, ReferenceSource)
		wantErr error
	}{
		{
			name: "success",
			setup: func(t *testing.T) (*Keystore, ReferenceSource) {
				ctrl := gomock.NewController(t)
				t.Cleanup(ctrl.Finish)

				mockRefs := NewMockReferenceSource(ctrl)
				mockMetrics := NewMockMetrics(ctrl)

				gomock.InOrder(
					mockRefs.EXPECT().
						LastReference(ctx, testAddress).
						Return(testParent, nil),
					mockMetrics.EXPECT().
						Observe(opTransfer, gomock.Nil(), gomock.AssignableToTypeOf(time.Time{})),
					mockMetrics.EXPECT().
						Observe(opVerifyTransaction, gomock.Nil(), gomock.AssignableToTypeOf(time.Time{})),
				)

				return New(WithMetrics(mockMetrics)), mockRefs
			},
		},
		{
			name: "reference lookup fails",
			setup: func(t *testing.T) (*Keystore, ReferenceSource) {
				ctrl := gomock.NewController(t)
				t.Cleanup(ctrl.Finish)

				mockRefs := NewMockReferenceSource(ctrl)
				mockMetrics := NewMockMetrics(ctrl)
				lookupErr := errors.New("node unavailable")

				gomock.InOrder(
					mockRefs.EXPECT().
						LastReference(ctx, testAddress).
						Return(tx.Reference{}, lookupErr),
					mockMetrics.EXPECT().
						Observe(opTransfer, gomock.Any(), gomock.AssignableToTypeOf(time.Time{})).
						Do(func(_ string, err error, _ time.Time) {
							if !errors.Is(err, lookupErr) {
								t.Fatalf("unexpected error propagated to metrics: %v", err)
							}
						}),
				)

				return New(WithMetrics(mockMetrics)), mockRefs
			},
			wantErr: errors.New("fetch last reference"),
		},
		{
			name: "invalid transfer",
			setup: func(t *testing.T) (*Keystore, ReferenceSource) {
				ctrl := gomock.NewController(t)
				t.Cleanup(ctrl.Finish)

				mockRefs := NewMockReferenceSource(ctrl)
				mockMetrics := NewMockMetrics(ctrl)

				mockRefs.EXPECT().
					LastReference(ctx, testAddress).
					Return(tx.Reference{Hash: "short", Ordinal: 1}, nil)
				mockMetrics.EXPECT().
					Observe(opTransfer, gomock.Not(gomock.Nil()), gomock.Any())

				return New(WithMetrics(mockMetrics)), mockRefs
			},
			wantErr: keyerr.ErrInvalidTransaction,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ks, refs := tt.setup(t)
			signed, err := ks.Transfer(ctx, refs, testAccount(t), testDestination, 10000000, 2000000)

			if tt.wantErr != nil {
				require.Error(t, err)
				var kerr *keyerr.Error
				if errors.As(tt.wantErr, &kerr) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				assert.Nil(t, signed)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testParent, signed.Value.Parent)
			assert.Equal(t, testAddress, signed.Value.Source)
			assert.GreaterOrEqual(t, signed.Value.Salt, int64(tx.MinSalt))

			ok, err := ks.VerifyTransaction(signed)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestEncodingErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ks := New(WithLogger(zap.New(core)))

	_, err := ks.SignData(testAccount(t), make(chan int), datasign.Raw)
	require.ErrorIs(t, err, keyerr.ErrEncoding)

	entries := logs.FilterMessage("encoding failure").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, opSignData, entries[0].ContextMap()["operation"])

	// User-facing errors are returned, not logged as faults.
	_, err = ks.PrepareTransaction(testAddress, testAddress, 1, 0, testParent)
	require.ErrorIs(t, err, keyerr.ErrInvalidTransaction)
	assert.Len(t, logs.FilterMessage("encoding failure").All(), 1)
}

func TestSignAndVerifyData(t *testing.T) {
	ks := New()
	acct := testAccount(t)
	value := map[string]any{"action": "vote", "nonce": 7}

	signed, err := ks.SignData(acct, value, datasign.Base64())
	require.NoError(t, err)

	ok, err := ks.VerifyData(signed, datasign.Base64())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ks.VerifyData(signed, datasign.Hex())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ks.VerifyData(&datasign.SignedData{Value: value}, datasign.Base64())
	require.NoError(t, err)
	assert.False(t, ok)
}
