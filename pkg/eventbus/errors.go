package eventbus

import "errors"

// ErrUnknownEventType is returned when a message carries an event type outside
// the closed set defined in pkg/events.
var ErrUnknownEventType = errors.New("unknown event type")
