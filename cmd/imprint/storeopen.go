package main

import (
	"github.com/Rakshat28/imprint/internal/state"
)

// openStoreForRun returns the state store a command should use. A normal
// run always opens (and, if needed, creates) the real persisted store. A
// dry run opens the real store read-only if it already exists; if it does
// not, a dry run must never create it, so an ephemeral scratch store is
// used instead, returned together with a cleanup func the caller defers.
func openStoreForRun(dryRun bool) (store *state.Store, cleanup func() error, err error) {
	if !dryRun {
		s, err := state.OpenDefault()
		return s, nil, err
	}

	s, err := state.OpenReadonlyIfExists()
	if err != nil {
		return nil, nil, err
	}
	if s != nil {
		return s, nil, nil
	}
	return state.OpenEphemeral()
}
