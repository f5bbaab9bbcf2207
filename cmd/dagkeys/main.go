// dagkeys - offline key management and signing for the DAG ledger
//
// Every command prints JSON on stdout; logs go to stderr.
//
// Example usage:
//
//	# Create a new wallet
//	dagkeys mnemonic --words 24
//
//	# Show the keys and address at index 2
//	DAGKEYS_MNEMONIC="..." dagkeys keys --index 2
//
//	# Sign a transfer for broadcast
//	dagkeys sign-tx --private-key <hex> --to DAG... --amount 1.5 \
//	  --parent-hash <hash> --parent-ordinal 146
//
//	# Verify a signed transaction read from stdin
//	dagkeys verify < signed.json
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/suffix-labs/dag-keystore/pkg/crypto"
	"github.com/suffix-labs/dag-keystore/pkg/keystore"
	"github.com/suffix-labs/dag-keystore/pkg/metrics"
)

type app struct {
	Verbose  bool   `short:"v" long:"verbose" description:"Enable debug logging"`
	HashMode string `long:"hash-mode" env:"DAGKEYS_HASH_MODE" default:"sha512" choice:"sha512" choice:"sha256" description:"Transaction signing hash"`
	Metrics  bool   `long:"metrics" description:"Print operation metrics to stderr on exit"`

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
	ks     *keystore.Keystore
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut}

	parser := flags.NewParser(a, flags.Default)
	parser.Name = "dagkeys"
	a.register(parser)

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := a.setup(); err != nil {
			return err
		}
		defer func() {
			_ = a.logger.Sync()
		}()
		if a.Metrics {
			defer a.dumpMetrics()
		}

		if err := cmd.Execute(args); err != nil {
			a.logger.Debug("command failed", zap.Error(err))
			return err
		}
		return nil
	}

	_, err := parser.ParseArgs(args)
	return err
}

func (a *app) setup() error {
	var err error
	if a.Verbose {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	mode, err := crypto.ParseHashMode(a.HashMode)
	if err != nil {
		return err
	}

	a.ks = keystore.New(
		keystore.WithLogger(a.logger.Named("keystore")),
		keystore.WithMetrics(metrics.Keystore{}),
		keystore.WithHashMode(mode),
	)
	return nil
}

func (a *app) dumpMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		a.logger.Error("Failed to gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		if mf.GetName() == "" || len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(a.errOut, mf); err != nil {
			a.logger.Error("Failed to write metrics", zap.Error(err))
			return
		}
	}
}

func (a *app) register(parser *flags.Parser) {
	commands := []struct {
		name, short, long string
		cmd               any
	}{
		{"mnemonic", "Generate a new mnemonic",
			"Generate a BIP39 mnemonic and print it with the keys of its first account.",
			&mnemonicCommand{app: a}},
		{"keys", "Derive account keys",
			"Print the private key, public key and address of an account.",
			&keysCommand{app: a}},
		{"address", "Derive the address of a public key",
			"Print the DAG address of a hex public key (128 or 130 characters).",
			&addressCommand{app: a}},
		{"validate", "Validate a DAG address",
			"Check the prefix, length, Base58 alphabet and checksum digit of an address.",
			&validateCommand{app: a}},
		{"sign-tx", "Build and sign a transfer",
			"Build a currency transaction, sign it and print the payload to post to the ledger.",
			&signTxCommand{app: a}},
		{"verify", "Verify a signed transaction",
			"Read a signed transaction as JSON from a file or stdin and check every proof.",
			&verifyCommand{app: a}},
		{"sign-data", "Sign arbitrary JSON",
			"Sign a JSON value with the signed-data envelope.",
			&signDataCommand{app: a}},
	}

	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.cmd); err != nil {
			panic("register command " + c.name + ": " + err.Error())
		}
	}
}
