package repository

import "errors"

// ErrIllegalTransition is returned when a status move not present in the
// attempt transition table is requested; it is a programming error, not a
// lost race.
var ErrIllegalTransition = errors.New("illegal attempt status transition")
