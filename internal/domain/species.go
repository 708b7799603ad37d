package domain

import "errors"

// ErrUnknownSpecies is returned when a species code is absent from the
// reference taxonomy.
var ErrUnknownSpecies = errors.New("unknown species code")

// Species is one entry of the reference taxonomy.
type Species struct {
	Code           string
	CommonName     string
	ScientificName string
}
