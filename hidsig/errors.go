package hidsig

import "errors"

// ErrNoSignature is returned by Instantiate when a token's (vendor ID,
// product ID, kind) matches no registered Signature and no wildcard
// applies -- spec.md's Signature-reject scenario.
var ErrNoSignature = errors.New("hidsig: no signature matches device")
