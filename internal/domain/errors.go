package domain

import (
	"errors"
	"fmt"
)

// ErrInstrumentNotFound is returned by sizing when the instrument is
// absent from cached venue metadata. Fatal to the triggering request
// only; no order is placed.
var ErrInstrumentNotFound = errors.New("instrument not found in cached metadata")

// VenueError is a structured rejection from the venue: the call reached
// the exchange and came back with a non-success code.
type VenueError struct {
	Op   string
	Code string
	Msg  string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s: venue code %s: %s", e.Op, e.Code, e.Msg)
}

// VenueMessage extracts the venue's own message from err so it can be
// surfaced verbatim in webhook responses; falls back to err.Error().
func VenueMessage(err error) string {
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
