// Package keyerr defines the error taxonomy shared by the keystore packages.
//
// Every failure raised by derivation, encoding, signing or address handling
// is an *Error carrying one of the codes below. Callers branch on the code
// with errors.Is against the exported sentinels:
//
//	if errors.Is(err, keyerr.ErrInvalidMnemonic) {
//		// ask the user for a corrected phrase
//	}
//
// Signature verification failure is deliberately absent: a signature that
// does not verify is reported as false, never as an error.
package keyerr

import "fmt"

// Code identifies a class of keystore failure.
type Code string

// Error codes. INVALID_MNEMONIC and INVALID_TRANSACTION are user-facing;
// ENCODING_ERROR indicates an internal fault and should be logged.
const (
	CodeInvalidMnemonic       Code = "INVALID_MNEMONIC"        // Wordlist or checksum validation failed
	CodeInvalidDerivationPath Code = "INVALID_DERIVATION_PATH" // Malformed or unsupported path template
	CodeInvalidKey            Code = "INVALID_KEY"             // Private key wrong length or out of range
	CodeInvalidPublicKey      Code = "INVALID_PUBLIC_KEY"      // Public key wrong length or not on the curve
	CodeInvalidTransaction    Code = "INVALID_TRANSACTION"     // Transaction rejected before encoding
	CodeInvalidAddress        Code = "INVALID_ADDRESS"         // Address failed format validation
	CodeEncoding              Code = "ENCODING_ERROR"          // Internal encoding invariant violated
)

// Error is the structured error returned by all keystore packages.
type Error struct {
	Code    Code   // Failure class
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same class.
//
// An INVALID_PUBLIC_KEY error also matches ErrInvalidKey, so callers that only
// care about "bad key material" need a single check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeInvalidKey && e.Code == CodeInvalidPublicKey
}

// Sentinels for errors.Is comparisons. Their messages are never returned
// directly; every raised error carries its own message.
var (
	ErrInvalidMnemonic       = &Error{Code: CodeInvalidMnemonic, Message: "invalid mnemonic"}
	ErrInvalidDerivationPath = &Error{Code: CodeInvalidDerivationPath, Message: "invalid derivation path"}
	ErrInvalidKey            = &Error{Code: CodeInvalidKey, Message: "invalid key"}
	ErrInvalidPublicKey      = &Error{Code: CodeInvalidPublicKey, Message: "invalid public key"}
	ErrInvalidTransaction    = &Error{Code: CodeInvalidTransaction, Message: "invalid transaction"}
	ErrInvalidAddress        = &Error{Code: CodeInvalidAddress, Message: "invalid address"}
	ErrEncoding              = &Error{Code: CodeEncoding, Message: "encoding error"}
)

// New returns an error of the given class.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf returns an error of the given class with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given class wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
