package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/lattice"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, lattice.ErrTupleNotFound) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, lattice.ErrInvalidRequest) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, lattice.ErrZoneIsolation) {
		return forge.Forbidden(err.Error())
	}
	if errors.Is(err, lattice.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
