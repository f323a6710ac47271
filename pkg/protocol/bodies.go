package protocol

// Typed payload bodies exchanged by the standard handlers. All are
// encoded via EncodeBody so either JSON or CBOR works on the wire.

// HandshakeHello rides an IntentHandshakeInit packet. The signature is
// ed25519 over the raw session id, proving the dialer owns the key it
// advertises.
type HandshakeHello struct {
    Node        string `json:"node"`
    PublicKey   []byte `json:"public_key"`
    Signature   []byte `json:"signature"`
    Compression uint8  `json:"compression"`
    Encryption  uint8  `json:"encryption"`
}

// HandshakeAccept rides the IntentHandshakeAck reply and carries the
// negotiated preferences.
type HandshakeAccept struct {
    Accepted    bool   `json:"accepted"`
    Node        string `json:"node,omitempty"`
    Compression uint8  `json:"compression"`
    Encryption  uint8  `json:"encryption"`
    Reason      string `json:"reason,omitempty"`
}

// SearchQuery rides IntentSearch and IntentSearchSuggest packets.
type SearchQuery struct {
    Terms   string            `json:"terms"`
    Limit   int               `json:"limit,omitempty"`
    Offset  int               `json:"offset,omitempty"`
    Filters map[string]string `json:"filters,omitempty"`
}

// SearchHit is one entry of a SearchResult.
type SearchHit struct {
    DocID   string  `json:"doc_id"`
    Score   float64 `json:"score"`
    Snippet string  `json:"snippet,omitempty"`
}

// SearchResult rides the reply to a SearchQuery.
type SearchResult struct {
    Hits  []SearchHit `json:"hits"`
    Total int         `json:"total"`
}

// DataChunk rides IntentDataPush and IntentDataDelta packets.
type DataChunk struct {
    Key   string `json:"key"`
    Data  []byte `json:"data"`
    Delta bool   `json:"delta,omitempty"`
}

// RankingVector rides IntentRankingUpdate packets.
type RankingVector struct {
    User    string             `json:"user"`
    Weights map[string]float64 `json:"weights"`
}

// CacheKey rides IntentCacheQuery and IntentCacheInvalidate packets.
type CacheKey struct {
    Key string `json:"key"`
}

// CacheValue rides the reply to a cache query.
type CacheValue struct {
    Key   string `json:"key"`
    Found bool   `json:"found"`
    Data  []byte `json:"data,omitempty"`
}

// ErrorBody rides IntentError replies.
type ErrorBody struct {
    Code    int    `json:"code"`
    Message string `json:"message"`
}
