// Package identity manages the node's ed25519 keypair used to prove
// session ownership during the handshake.
package identity

import (
    "crypto/ed25519"
    "crypto/rand"
    "encoding/base64"
    "os"
    "strings"

    "go.uber.org/zap"

    "github.com/H-strangeone/serv-fdpk/pkg/config"
)

// Identity is a node keypair plus its display name.
type Identity struct {
    Node    string
    Private ed25519.PrivateKey
    Public  ed25519.PublicKey
}

// LoadOrGen loads an ed25519 private key from config (inline base64 or
// key file) or generates a fresh one.
func LoadOrGen(node string, c config.IdentityConfig) (*Identity, error) {
    var priv ed25519.PrivateKey
    if s := strings.TrimSpace(c.PrivateKey); s != "" {
        if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
            priv = checkedKey(b, "identity.private_key")
        } else {
            zap.L().Warn("failed to decode identity.private_key", zap.Error(err))
        }
    }
    if priv == nil && strings.TrimSpace(c.PrivateKeyFile) != "" {
        if b, err := os.ReadFile(c.PrivateKeyFile); err == nil {
            txt := strings.TrimSpace(string(b))
            if db, err := base64.RawURLEncoding.DecodeString(txt); err == nil {
                priv = checkedKey(db, "identity.private_key_file")
            } else {
                // assume raw key bytes
                priv = checkedKey(b, "identity.private_key_file")
            }
        } else {
            zap.L().Warn("failed to read identity.private_key_file", zap.Error(err))
        }
    }
    if priv == nil {
        _, gen, err := ed25519.GenerateKey(rand.Reader)
        if err != nil {
            return nil, err
        }
        priv = gen
        zap.L().Info("generated new ed25519 identity (persist via config.identity.private_key)",
            zap.String("pub_b64", base64.RawURLEncoding.EncodeToString(gen.Public().(ed25519.PublicKey))))
    }
    return &Identity{
        Node:    node,
        Private: priv,
        Public:  priv.Public().(ed25519.PublicKey),
    }, nil
}

// checkedKey accepts b as a private key only at the exact ed25519 size;
// anything else would make Sign panic later.
func checkedKey(b []byte, source string) ed25519.PrivateKey {
    if len(b) != ed25519.PrivateKeySize {
        zap.L().Warn("ignoring malformed private key",
            zap.String("source", source), zap.Int("len", len(b)))
        return nil
    }
    return ed25519.PrivateKey(b)
}

// Sign signs data with the node key.
func (id *Identity) Sign(data []byte) []byte { return ed25519.Sign(id.Private, data) }

// Verify checks sig over data against pub.
func Verify(pub ed25519.PublicKey, data, sig []byte) bool {
    return len(pub) == ed25519.PublicKeySize && ed25519.Verify(pub, data, sig)
}
