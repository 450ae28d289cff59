package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

// Drop reasons reported in metrics.
const (
	reasonMalformed     = "malformed"
	reasonUnknownType   = "unknown_type"
	reasonUnknownStatus = "unknown_status"
	reasonMissingRoom   = "missing_room"
)

// decodeError is a SyncError tagged with its drop reason.
type decodeError struct {
	reason string
	err    *domain.Error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func dropped(reason, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &decodeError{reason: reason, err: domain.NewSyncError(msg, nil)}
}

// Encode serializes an event for the cross-context transport.
func Encode(evt domain.RoomStatusChanged) ([]byte, error) {
	return json.Marshal(evt)
}

// Decode parses a transport payload. The status may use any encoding known to
// labels and is returned in canonical form. Failures are SyncErrors.
func Decode(payload []byte, labels *domain.Labels) (domain.RoomStatusChanged, error) {
	var evt domain.RoomStatusChanged
	if err := json.Unmarshal(payload, &evt); err != nil {
		return domain.RoomStatusChanged{}, &decodeError{
			reason: reasonMalformed,
			err:    domain.NewSyncError("malformed room status payload", err),
		}
	}
	if evt.Type != "" && evt.Type != domain.RoomStatusEventType {
		return domain.RoomStatusChanged{}, dropped(reasonUnknownType, "unexpected event type %q", evt.Type)
	}
	if evt.RoomID <= 0 {
		return domain.RoomStatusChanged{}, dropped(reasonMissingRoom, "room status event without room id")
	}
	status, ok := labels.Parse(string(evt.Status))
	if !ok {
		return domain.RoomStatusChanged{}, dropped(reasonUnknownStatus, "unknown room status %q", evt.Status)
	}
	evt.Type = domain.RoomStatusEventType
	evt.Status = status
	return evt, nil
}

func dropReason(err error) string {
	if de, ok := err.(*decodeError); ok {
		return de.reason
	}
	return reasonMalformed
}
