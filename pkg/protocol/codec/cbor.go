package codec

import (
    cbor "github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
    enc cbor.EncMode
    dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec (RFC 8949 core profile).
func CBOR() Codec {
    enc, err := cbor.CanonicalEncOptions().EncMode()
    if err != nil {
        panic(err) // fixed options, cannot fail
    }
    dec, err := cbor.DecOptions{}.DecMode()
    if err != nil {
        panic(err)
    }
    return cborCodec{enc: enc, dec: dec}
}

func (c cborCodec) ContentType() string                { return ContentCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
