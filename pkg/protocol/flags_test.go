package protocol

import "testing"

func TestFlagIndependence(t *testing.T) {
    var f Flags
    f.SetCompression(CompressionZstd)
    f.SetEncryption(EncryptionAes256)
    f.SetFragmented(true)
    f.SetAckRequired(true)

    if f.Compression() != CompressionZstd {
        t.Fatalf("compression = %v", f.Compression())
    }
    if f.Encryption() != EncryptionAes256 {
        t.Fatalf("encryption = %v", f.Encryption())
    }
    if !f.Fragmented() || !f.AckRequired() {
        t.Fatalf("boolean flags lost: %08b", f)
    }

    // overwrite one sub-field at a time; the others must not move
    f.SetCompression(CompressionBrotli)
    if f.Encryption() != EncryptionAes256 || !f.Fragmented() || !f.AckRequired() {
        t.Fatalf("compression write disturbed other fields: %08b", f)
    }
    f.SetEncryption(EncryptionNone)
    if f.Compression() != CompressionBrotli || !f.Fragmented() || !f.AckRequired() {
        t.Fatalf("encryption write disturbed other fields: %08b", f)
    }
    f.SetFragmented(false)
    if f.Compression() != CompressionBrotli || f.Encryption() != EncryptionNone || !f.AckRequired() {
        t.Fatalf("fragmented write disturbed other fields: %08b", f)
    }
    f.SetAckRequired(false)
    if f.Compression() != CompressionBrotli || f.Encryption() != EncryptionNone || f.Fragmented() {
        t.Fatalf("ack write disturbed other fields: %08b", f)
    }
}

func TestFlagGettersMaskOnly(t *testing.T) {
    // all unrelated bits lit; each getter must still read only its range
    f := Flags(0xFF)
    f.SetCompression(CompressionLz4)
    if f.Compression() != CompressionLz4 {
        t.Fatalf("compression = %v with noisy byte %08b", f.Compression(), f)
    }
    f.SetEncryption(EncryptionChaCha20)
    if f.Encryption() != EncryptionChaCha20 {
        t.Fatalf("encryption = %v with noisy byte %08b", f.Encryption(), f)
    }
    if !f.Fragmented() || !f.AckRequired() {
        t.Fatalf("boolean bits lost: %08b", f)
    }
}

func TestReservedBitUntouched(t *testing.T) {
    f := Flags(1 << 7)
    f.SetCompression(CompressionZstd)
    f.SetEncryption(EncryptionAes256)
    f.SetFragmented(true)
    f.SetAckRequired(true)
    f.SetFragmented(false)
    f.SetAckRequired(false)
    if f&(1<<7) == 0 {
        t.Fatalf("reserved bit cleared by a setter: %08b", f)
    }
}

func TestUndefinedPatternsFallBack(t *testing.T) {
    // compression patterns 4..7 are unnamed
    for _, raw := range []Flags{0b0000_0100, 0b0000_0101, 0b0000_0110, 0b0000_0111} {
        if raw.Compression() != CompressionNone {
            t.Fatalf("pattern %03b should fall back to none", byte(raw))
        }
    }
    // encryption pattern 3 is unnamed
    f := Flags(0b0001_1000)
    if f.Encryption() != EncryptionNone {
        t.Fatalf("encryption pattern 11 should fall back to none")
    }
}
