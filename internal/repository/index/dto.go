package index

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/harborline/catalogsearch/internal/domain/object"
)

// Hash field names of an index row.
const (
	fieldOrgID     = "org_id"
	fieldRawText   = "raw_text"
	fieldPayload   = "payload"
	fieldTokens    = "tokens"
	fieldVector    = "vector"
	fieldLearned   = "learned_keywords"
	fieldLearnedAt = "learned_at"
	fieldContentFP = "content_fp"
	fieldEmbFP     = "embedding_fp"
	fieldEmbStatus = "embedding_status"
	fieldUpdatedAt = "updated_at"
)

// objectFromFields converts a flat hash map back into a domain Object.
func objectFromFields(key object.Key, m map[string]string) object.Object {
	status := object.EmbeddingStatus(m[fieldEmbStatus])
	if !status.IsValid() {
		status = object.EmbeddingPending
	}
	return object.Reconstruct(
		key,
		m[fieldOrgID],
		m[fieldRawText],
		[]byte(m[fieldPayload]),
		m[fieldTokens],
		bytesToVector(m[fieldVector]),
		m[fieldLearned],
		parseTime(m[fieldLearnedAt]),
		m[fieldContentFP],
		m[fieldEmbFP],
		status,
		parseTime(m[fieldUpdatedAt]),
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
