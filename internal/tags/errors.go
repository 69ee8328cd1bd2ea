package tags

import (
	"errors"
	"fmt"
)

// ErrDuplicateTag rejects a submission when the device already has a tag
// within the minimum tag distance, on any machine.
var ErrDuplicateTag = errors.New("device already tagged a machine nearby")

// ErrInvalidCoordinate rejects submissions outside the legal lat/lng ranges.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// MalformedRecordError marks a machine record that is missing required
// fields. During replica merges the record is logged and skipped; during an
// import it rejects the whole payload.
type MalformedRecordError struct {
	ID     string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed machine record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed machine record %s: %s", e.ID, e.Reason)
}
