package tx

import (
	"encoding/hex"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

const (
	// kryoStringTag is the class tag the ledger's Kryo setup writes before a
	// String.
	kryoStringTag = 0x03

	// kryoReferenceFlag marks a reference-tracked object.
	kryoReferenceFlag = 0x01

	// maxUtf8Length is the first value the five-byte form cannot carry.
	maxUtf8Length = 1 << 34
)

// Utf8Length encodes v the way Kryo writes a UTF-8 string length.
//
// The first byte carries the low six bits with 0x80 set, plus 0x40 when more
// bytes follow. Each following byte carries seven more bits with 0x80 set
// when another byte follows. Bytes are truncated to eight bits.
//
//	v < 2^6   1 byte
//	v < 2^13  2 bytes
//	v < 2^20  3 bytes
//	v < 2^27  4 bytes
//	v < 2^34  5 bytes
func Utf8Length(v uint64) ([]byte, error) {
	if v >= maxUtf8Length {
		return nil, keyerr.Newf(keyerr.CodeEncoding, "length %d does not fit the 5-byte form", v)
	}

	if v>>6 == 0 {
		return []byte{byte(v | 0x80)}, nil
	}

	buf := []byte{byte(v | 0xC0)}
	for shift := uint(6); ; shift += 7 {
		rest := v >> shift
		if rest>>7 == 0 {
			return append(buf, byte(rest)), nil
		}
		buf = append(buf, byte(rest|0x80))
	}
}

// Serialize frames an encoded transaction as a Kryo String and returns it as
// lowercase hex: the class tag 03, the reference flag 01 when setReferences
// is true, the length of the string plus one, then the string bytes.
func Serialize(encoded string, setReferences bool) (string, error) {
	length, err := Utf8Length(uint64(len(encoded)) + 1)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, 2+len(length)+len(encoded))
	buf = append(buf, kryoStringTag)
	if setReferences {
		buf = append(buf, kryoReferenceFlag)
	}
	buf = append(buf, length...)
	buf = append(buf, encoded...)

	return hex.EncodeToString(buf), nil
}
