package transport

import (
    "bufio"
    "encoding/binary"
    "fmt"
    "io"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
)

// Stream transports prefix each frame with a big-endian u32 length,
// matching the byte order of the packet header. A frame can never be
// larger than a maximum encoded packet.

// WriteFrame writes one length-prefixed frame and flushes.
func WriteFrame(w *bufio.Writer, frame []byte) error {
    if len(frame) > protocol.MaxPacketSize {
        return fmt.Errorf("frame exceeds maximum packet size: %d", len(frame))
    }
    var lenbuf [4]byte
    binary.BigEndian.PutUint32(lenbuf[:], uint32(len(frame)))
    if _, err := w.Write(lenbuf[:]); err != nil {
        return err
    }
    if _, err := w.Write(frame); err != nil {
        return err
    }
    return w.Flush()
}

// ReadFrame reads one length-prefixed frame.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
    var lenbuf [4]byte
    if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
        return nil, err
    }
    n := binary.BigEndian.Uint32(lenbuf[:])
    if n > protocol.MaxPacketSize {
        return nil, fmt.Errorf("frame exceeds maximum packet size: %d", n)
    }
    frame := make([]byte, n)
    if _, err := io.ReadFull(r, frame); err != nil {
        return nil, err
    }
    return frame, nil
}
