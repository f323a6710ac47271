// fdp-genpacket writes sample encoded packets to a directory, useful as
// interop fixtures and fuzzing seeds.
package main

import (
    "encoding/hex"
    "flag"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
)

func main() {
    outDir := flag.String("out", "testdata/packets", "output directory for encoded packets")
    flag.Parse()
    if err := os.MkdirAll(*outDir, 0o755); err != nil {
        log.Fatal(err)
    }

    id, err := protocol.NewSessionID(nil)
    if err != nil {
        log.Fatal(err)
    }
    reg := codec.NewRegistry()

    // 1) Minimum-size packet: empty-payload Ping.
    ping := mustPacket(id, protocol.IntentPing, nil)
    writeOut(*outDir, "packet_ping_empty.bin", ping.Encode())

    // 2) Search query with a JSON body.
    body, err := protocol.EncodeBody(reg, protocol.FormatJSON, protocol.SearchQuery{
        Terms: "distributed hash", Limit: 10,
    })
    if err != nil {
        log.Fatal(err)
    }
    search := mustPacket(id, protocol.IntentSearch, body)
    search.Sequence = 7
    writeOut(*outDir, "packet_search_json.bin", search.Encode())

    // 3) Cache query with a CBOR body.
    body, err = protocol.EncodeBody(reg, protocol.FormatCBOR, protocol.CacheKey{Key: "hot/item"})
    if err != nil {
        log.Fatal(err)
    }
    cq := mustPacket(id, protocol.IntentCacheQuery, body)
    writeOut(*outDir, "packet_cache_cbor.bin", cq.Encode())

    // 4) Fragmented data push with the ack bit set.
    chunk := make([]byte, 256)
    for i := range chunk {
        chunk[i] = byte(i)
    }
    push := mustPacket(id, protocol.IntentDataPush, chunk)
    push.Flags.SetFragmented(true)
    push.Flags.SetAckRequired(true)
    push.Sequence = 42
    writeOut(*outDir, "packet_data_fragment.bin", push.Encode())

    fmt.Println("Generated packets in", *outDir)
}

func mustPacket(id protocol.SessionID, intent protocol.Intent, payload []byte) *protocol.Packet {
    p, err := protocol.New(id, intent, payload)
    if err != nil {
        log.Fatal(err)
    }
    return p
}

func writeOut(dir, name string, b []byte) {
    p := filepath.Join(dir, name)
    if err := os.WriteFile(p, b, 0o644); err != nil {
        log.Fatal(err)
    }
    fmt.Printf("%-28s %5d bytes  head: %s\n", name, len(b), shortHex(b, 48))
}

func shortHex(b []byte, n int) string {
    if len(b) == 0 {
        return ""
    }
    if n > len(b) {
        n = len(b)
    }
    enc := hex.EncodeToString(b[:n])
    var out []string
    for i := 0; i < len(enc); i += 4 {
        j := i + 4
        if j > len(enc) {
            j = len(enc)
        }
        out = append(out, enc[i:j])
    }
    return strings.Join(out, " ")
}
