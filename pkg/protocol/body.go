package protocol

import (
    "fmt"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
)

// Format is a compact on-wire indicator of the body encoding. It is
// carried as the first byte of a packet payload built by EncodeBody, so
// handlers can decode without out-of-band negotiation.
type Format uint8

const (
    FormatUnknown Format = iota
    FormatJSON
    FormatCBOR
    FormatProto
)

func (f Format) String() string {
    switch f {
    case FormatJSON:
        return codec.ContentJSON
    case FormatCBOR:
        return codec.ContentCBOR
    case FormatProto:
        return codec.ContentProto
    default:
        return "application/octet-stream"
    }
}

// CodecFor resolves the codec for a format, preferring a registry entry.
func CodecFor(r *codec.Registry, f Format) (codec.Codec, error) {
    switch f {
    case FormatJSON:
        if c := r.Get(codec.ContentJSON); c != nil {
            return c, nil
        }
        return codec.JSON(), nil
    case FormatCBOR:
        if c := r.Get(codec.ContentCBOR); c != nil {
            return c, nil
        }
        return codec.CBOR(), nil
    case FormatProto:
        if c := r.Get(codec.ContentProto); c != nil {
            return c, nil
        }
        return codec.Proto(), nil
    default:
        return nil, fmt.Errorf("unknown body format: %d", f)
    }
}

// EncodeBody serializes v with the codec for f and prefixes the result
// with a single format byte.
func EncodeBody(r *codec.Registry, f Format, v any) ([]byte, error) {
    c, err := CodecFor(r, f)
    if err != nil {
        return nil, err
    }
    b, err := c.Marshal(v)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 1+len(b))
    out[0] = byte(f)
    copy(out[1:], b)
    return out, nil
}

// DecodeBody decodes a payload produced by EncodeBody into v and reports
// the detected format.
func DecodeBody(r *codec.Registry, payload []byte, v any) (Format, error) {
    if len(payload) == 0 {
        return FormatUnknown, fmt.Errorf("empty payload")
    }
    f := Format(payload[0])
    c, err := CodecFor(r, f)
    if err != nil {
        return f, err
    }
    if err := c.Unmarshal(payload[1:], v); err != nil {
        return f, err
    }
    return f, nil
}
