package davsync

import "errors"

// ErrProtocolViolation is returned when the server claims to support a
// protocol but sends a response breaking its contract. It is never
// recovered from by falling back to another strategy.
var ErrProtocolViolation = errors.New("davsync: protocol violation")
