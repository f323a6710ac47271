package protocol

// Flags packs four sub-fields into one header byte:
//
//  bit 0..2  compression preference (8 patterns, 4 defined)
//  bit 3..4  encryption preference  (4 patterns, 3 defined)
//  bit 5     fragmented
//  bit 6     ack required
//  bit 7     reserved, round-trips unchanged
//
// A dedicated type keeps this byte from being confused with the other
// one-byte header fields. Setters read-modify-write only their own mask.
type Flags uint8

const (
    compressionMask Flags = 0b0000_0111
    encryptionMask  Flags = 0b0001_1000
    encryptionShift       = 3
    flagFragmented  Flags = 1 << 5
    flagAckRequired Flags = 1 << 6
)

// SetCompression stores the compression preference in bits 0-2.
func (f *Flags) SetCompression(c Compression) {
    *f = (*f &^ compressionMask) | (Flags(c.Byte()) & compressionMask)
}

// Compression reads bits 0-2. Undefined patterns fall back to
// CompressionNone rather than failing.
func (f Flags) Compression() Compression {
    c, ok := CompressionFromByte(byte(f & compressionMask))
    if !ok {
        return CompressionNone
    }
    return c
}

// SetEncryption stores the encryption preference in bits 3-4.
func (f *Flags) SetEncryption(e EncryptionLevel) {
    *f = (*f &^ encryptionMask) | ((Flags(e.Byte()) << encryptionShift) & encryptionMask)
}

// Encryption reads bits 3-4, falling back to EncryptionNone for the
// undefined pattern.
func (f Flags) Encryption() EncryptionLevel {
    e, ok := EncryptionFromByte(byte((f & encryptionMask) >> encryptionShift))
    if !ok {
        return EncryptionNone
    }
    return e
}

// SetFragmented marks the packet as part of a larger message. Reassembly
// is the session layer's problem; the codec only carries the bit.
func (f *Flags) SetFragmented(on bool) {
    if on {
        *f |= flagFragmented
    } else {
        *f &^= flagFragmented
    }
}

// Fragmented reports bit 5.
func (f Flags) Fragmented() bool { return f&flagFragmented != 0 }

// SetAckRequired marks that the sender expects an acknowledgment.
func (f *Flags) SetAckRequired(on bool) {
    if on {
        *f |= flagAckRequired
    } else {
        *f &^= flagAckRequired
    }
}

// AckRequired reports bit 6.
func (f Flags) AckRequired() bool { return f&flagAckRequired != 0 }
