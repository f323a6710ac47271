package protocol

import (
    "errors"
    "fmt"
)

// Decode failures form a closed taxonomy so the session/transport layer
// can decide per-reason whether to drop, log, or ask for a resend. The
// codec itself never retries.
var (
    // ErrPayloadTooLarge is returned by New when the payload exceeds
    // MaxPayloadSize. Caught at construction, never at encode time.
    ErrPayloadTooLarge = errors.New("payload exceeds maximum size")

    // ErrTooSmall means the buffer cannot hold even an empty packet.
    ErrTooSmall = errors.New("buffer smaller than minimum packet")

    // ErrTooLarge means the buffer exceeds the maximum packet size.
    ErrTooLarge = errors.New("buffer larger than maximum packet")

    // ErrLengthMismatch means the declared payload length does not agree
    // with the actual buffer length.
    ErrLengthMismatch = errors.New("declared payload length disagrees with buffer")

    // ErrInvalidHash means the recomputed digest differs from the
    // trailing 32 bytes; the whole packet is untrusted.
    ErrInvalidHash = errors.New("integrity hash mismatch")
)

// UnsupportedVersionError reports a version byte this codec does not
// speak.
type UnsupportedVersionError struct {
    Version uint8
}

func (e *UnsupportedVersionError) Error() string {
    return fmt.Sprintf("unsupported protocol version %d (want %d)", e.Version, Version)
}

// InvalidIntentError reports an intent byte outside the defined set.
type InvalidIntentError struct {
    Code byte
}

func (e *InvalidIntentError) Error() string {
    return fmt.Sprintf("invalid intent code 0x%02x", e.Code)
}
