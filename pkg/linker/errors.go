package linker

import "github.com/pkg/errors"

// Sentinel error kinds from the error taxonomy. Callers identify the kind of
// a failure with errors.Is against these values; context (file, symbol,
// section, relocation) is attached with errors.Wrapf at the point of
// failure so the full chain is printed to the user.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrUnsupportedTarget   = errors.New("unsupported target")
	ErrDuplicateSymbol     = errors.New("duplicate symbol")
	ErrUnresolvedSymbol    = errors.New("unresolved symbol")
	ErrMissingEntry        = errors.New("missing entry point")
	ErrUnsupportedReloc    = errors.New("unsupported relocation")
	ErrRelocationOverflow  = errors.New("relocation overflow")
	ErrIOFailure           = errors.New("i/o failure")
)
