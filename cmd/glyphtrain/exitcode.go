package main

import (
	"errors"

	"glyphtrain"
)

// Exit codes, matching spec.md §6: zero on success, distinct non-zero codes
// for the error categories a *glyphtrain.DataError can carry so a calling
// script can branch on exit status without parsing stderr.
const (
	exitOK = iota
	exitIOFailure
	exitMalformedInput
	exitClassOverflow
	exitOther
)

// exitCodeFor maps an error returned from a subcommand's RunE to a process
// exit status. Errors that aren't a *glyphtrain.DataError (flag parsing,
// plain I/O errors cobra itself surfaces) fall back to a generic failure
// code rather than exitOther, since the same fallback handles cobra usage
// errors: it's the only per-code guarantee spec.md §6 doesn't spell out.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var dataErr *glyphtrain.DataError
	if errors.As(err, &dataErr) {
		switch dataErr.Code {
		case glyphtrain.ErrMalformedParamDesc, glyphtrain.ErrMalformedPrototype, glyphtrain.ErrUnknownDistribution:
			return exitMalformedInput
		case glyphtrain.ErrClassOverflow:
			return exitClassOverflow
		case glyphtrain.ErrInvalidConfig:
			return exitMalformedInput
		}
	}
	return exitIOFailure
}
