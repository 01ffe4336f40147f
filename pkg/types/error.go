package types

import "math/big"

// ErrorKind is the closed set of tagged DecodedError constructors from
// spec.md §4.3/§9 — "reshape as a tagged variant with an explicit,
// closed set of constructors" rather than the source's open-shaped
// error objects.
type ErrorKind string

const (
	// EVM-side kinds.
	ErrRevert  ErrorKind = "revert"
	ErrPanic   ErrorKind = "panic"
	ErrCustom  ErrorKind = "custom"
	ErrUnknown ErrorKind = "unknown" // shared fallback on both sides

	// Runtime-module-side kinds.
	ErrModule       ErrorKind = "module"
	ErrBadOrigin    ErrorKind = "badOrigin"
	ErrCannotLookup ErrorKind = "cannotLookup"
	ErrArithmetic   ErrorKind = "arithmetic"
	ErrToken        ErrorKind = "token"
	ErrOther        ErrorKind = "other"
)

// DecodedError is the tagged, total decode result of C1/C2. Raw is
// populated whenever the input carried a raw hex/JSON payload (P6).
type DecodedError struct {
	Kind    ErrorKind
	Message string

	// EVM-specific fields.
	PanicCode *big.Int
	Name      string   // custom-error name
	Args      []string // custom-error args, stringified

	// Runtime-module-specific fields.
	Pallet string
	Docs   string

	Raw string
}
