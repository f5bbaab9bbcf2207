// Package payreq parses and builds DAG payment request URIs.
//
// A payment request carries a recipient address and, optionally, an amount
// and fee in DAG plus a label and message for the payer. It is the text that
// ends up in a QR code or a link.
//
// URI Format:
//
//	dag:<address>?amount=<amount>&fee=<fee>&label=<label>&message=<message>
//
// Several recipients use indexed parameters, index 0 may drop the suffix:
//
//	dag:?address.1=<addr1>&amount.1=<amt1>&address.2=<addr2>&amount.2=<amt2>
//
// Amounts are decimal DAG strings with at most 8 fractional digits and are
// held as integer base units.
package payreq

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/suffix-labs/dag-keystore/pkg/address"
	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
	"github.com/suffix-labs/dag-keystore/pkg/tx"
)

// Scheme is the URI scheme of a payment request.
const Scheme = "dag"

const maxIndex = 9999

// Request is a parsed payment request with one or more payments.
type Request struct {
	Payments []Payment
}

// Payment is a single recipient within a request. Amount and Fee are nil
// when the payer chooses them.
type Payment struct {
	Address string
	Amount  *uint64 // base units
	Fee     *uint64 // base units
	Label   string
	Message string
}

// Parse parses a payment request URI. The "dag:" prefix is optional.
//
// URI formats supported:
//  1. Single recipient: dag:DAG0...?amount=1.5&fee=0.0001
//  2. Multiple recipients: dag:?address.1=DAG0...&amount.1=1&address.2=DAG5...
//
// Every address must pass address.Validate. Errors are INVALID_ADDRESS for a
// bad recipient and INVALID_TRANSACTION for anything else.
func Parse(uri string) (*Request, error) {
	rest := strings.TrimPrefix(uri, Scheme+":")

	base, query, _ := strings.Cut(rest, "?")
	if query == "" && strings.Contains(base, "=") {
		base, query = "", base
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.CodeInvalidTransaction, "malformed payment request query", err)
	}

	var payments []Payment
	if hasIndexedParams(params) {
		if base != "" {
			return nil, keyerr.New(keyerr.CodeInvalidTransaction, "indexed payment request cannot carry a base address")
		}
		payments, err = parseIndexedPayments(params)
	} else {
		var p Payment
		p, err = parsePayment(params, 0, base)
		payments = []Payment{p}
	}
	if err != nil {
		return nil, err
	}

	return &Request{Payments: payments}, nil
}

// Single returns the only payment of the request.
func (r *Request) Single() (Payment, error) {
	if len(r.Payments) != 1 {
		return Payment{}, keyerr.Newf(keyerr.CodeInvalidTransaction, "payment request has %d payments, want 1", len(r.Payments))
	}
	return r.Payments[0], nil
}

func parsePayment(params url.Values, idx int, base string) (Payment, error) {
	p := Payment{Address: base}
	if a := getIndexedParam(params, "address", idx); a != "" {
		p.Address = a
	}
	if p.Address == "" {
		return p, keyerr.Newf(keyerr.CodeInvalidAddress, "payment %d missing address", idx)
	}
	if err := address.Validate(p.Address); err != nil {
		return p, fmt.Errorf("payment %d: %w", idx, err)
	}

	var err error
	if p.Amount, err = parseUnits(params, "amount", idx); err != nil {
		return p, err
	}
	if p.Fee, err = parseUnits(params, "fee", idx); err != nil {
		return p, err
	}
	p.Label = getIndexedParam(params, "label", idx)
	p.Message = getIndexedParam(params, "message", idx)
	return p, nil
}

func parseUnits(params url.Values, name string, idx int) (*uint64, error) {
	s := getIndexedParam(params, name, idx)
	if s == "" {
		return nil, nil
	}
	v, err := tx.ToUnits(s)
	if err != nil {
		return nil, fmt.Errorf("payment %d %s: %w", idx, name, err)
	}
	return &v, nil
}

func parseIndexedPayments(params url.Values) ([]Payment, error) {
	seen := make(map[int]struct{})
	for key := range params {
		if idx := extractIndex(key); idx >= 0 {
			seen[idx] = struct{}{}
		}
	}
	if _, ok := seen[0]; !ok && params.Get("address") != "" {
		seen[0] = struct{}{}
	}

	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return nil, keyerr.New(keyerr.CodeInvalidTransaction, "no payments found in payment request")
	}
	sort.Ints(indices)

	payments := make([]Payment, 0, len(indices))
	for _, idx := range indices {
		p, err := parsePayment(params, idx, "")
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func hasIndexedParams(params url.Values) bool {
	for key := range params {
		if strings.Contains(key, ".") {
			return true
		}
	}
	return false
}

// extractIndex returns N for "name.N" with N in [0, 9999], otherwise -1.
func extractIndex(key string) int {
	_, suffix, ok := strings.Cut(key, ".")
	if !ok {
		return -1
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 0 || idx > maxIndex {
		return -1
	}
	return idx
}

func getIndexedParam(params url.Values, name string, idx int) string {
	if idx == 0 {
		if v := params.Get(name); v != "" {
			return v
		}
	}
	return params.Get(name + "." + strconv.Itoa(idx))
}

// String renders the request as a URI; Parse(r.String()) yields r.
func (r *Request) String() string {
	switch len(r.Payments) {
	case 0:
		return Scheme + ":"
	case 1:
		p := r.Payments[0]
		uri := Scheme + ":" + p.Address
		if q := p.values("").Encode(); q != "" {
			uri += "?" + q
		}
		return uri
	}

	params := url.Values{}
	for i, p := range r.Payments {
		suffix := "." + strconv.Itoa(i)
		params.Set("address"+suffix, p.Address)
		for k, v := range p.values(suffix) {
			params[k] = v
		}
	}
	return Scheme + ":?" + params.Encode()
}

func (p Payment) values(suffix string) url.Values {
	params := url.Values{}
	if p.Amount != nil {
		params.Set("amount"+suffix, tx.FromUnits(*p.Amount))
	}
	if p.Fee != nil {
		params.Set("fee"+suffix, tx.FromUnits(*p.Fee))
	}
	if p.Label != "" {
		params.Set("label"+suffix, p.Label)
	}
	if p.Message != "" {
		params.Set("message"+suffix, p.Message)
	}
	return params
}
