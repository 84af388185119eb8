// Package object holds the denormalized index row aggregate.
package object

import (
	"fmt"
	"regexp"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// MaxRawTextSize is the maximum raw text size in bytes.
const MaxRawTextSize = 163840 // 160KB

// EmbeddingStatus tracks whether an object's vector is current.
type EmbeddingStatus string

// Embedding statuses.
const (
	EmbeddingPending EmbeddingStatus = "pending"
	EmbeddingDone    EmbeddingStatus = "done"
	EmbeddingFailed  EmbeddingStatus = "failed"
)

// IsValid reports whether the status is a known value.
func (s EmbeddingStatus) IsValid() bool {
	switch s {
	case EmbeddingPending, EmbeddingDone, EmbeddingFailed:
		return true
	}
	return false
}

// Key identifies an index row: (tenant, object type, object id).
type Key struct {
	Tenant string
	Type   string
	ID     string
}

// NewKey validates and creates a Key.
// All three parts: ^[a-zA-Z0-9_.-]+$, 1-256 chars.
func NewKey(tenant, objectType, objectID string) (Key, error) {
	for _, part := range []struct {
		name, value string
	}{
		{"tenant", tenant},
		{"object type", objectType},
		{"object id", objectID},
	} {
		if part.value == "" {
			return Key{}, fmt.Errorf("%s is required", part.name)
		}
		if len(part.value) > 256 {
			return Key{}, fmt.Errorf("%s too long (max 256)", part.name)
		}
		if !idRegex.MatchString(part.value) {
			return Key{}, fmt.Errorf("%s must be alphanumeric with underscores, dots and hyphens", part.name)
		}
	}
	return Key{Tenant: tenant, Type: objectType, ID: objectID}, nil
}

func (k Key) String() string {
	return k.Tenant + "/" + k.Type + "/" + k.ID
}

// Object is one denormalized index row (immutable value object).
// Ownership is split between two writers: the ingestion path owns
// rawText/payload, the learning applier owns learnedKeywords/learnedAt.
type Object struct {
	key             Key
	orgID           string
	rawText         string
	payload         []byte
	tokens          string
	vector          []float32
	learnedKeywords string
	learnedAt       time.Time
	contentFP       string
	embeddingFP     string
	embeddingStatus EmbeddingStatus
	updatedAt       time.Time
}

// New validates and creates an Object as produced by an ingestion upsert.
// The derived token representation and fingerprints are computed by the
// ingest service, not here.
func New(key Key, orgID, rawText string, payload []byte) (Object, error) {
	if rawText == "" {
		return Object{}, fmt.Errorf("raw text is required")
	}
	if len(rawText) > MaxRawTextSize {
		return Object{}, fmt.Errorf("raw text too large (max %d bytes)", MaxRawTextSize)
	}
	return Object{key: key, orgID: orgID, rawText: rawText, payload: payload}, nil
}

// Reconstruct rebuilds an Object from storage without validation.
func Reconstruct(
	key Key, orgID, rawText string, payload []byte,
	tokens string, vector []float32,
	learnedKeywords string, learnedAt time.Time,
	contentFP, embeddingFP string, embeddingStatus EmbeddingStatus,
	updatedAt time.Time,
) Object {
	return Object{
		key:             key,
		orgID:           orgID,
		rawText:         rawText,
		payload:         payload,
		tokens:          tokens,
		vector:          vector,
		learnedKeywords: learnedKeywords,
		learnedAt:       learnedAt,
		contentFP:       contentFP,
		embeddingFP:     embeddingFP,
		embeddingStatus: embeddingStatus,
		updatedAt:       updatedAt,
	}
}

// Key returns the row identity.
func (o *Object) Key() Key { return o.key }

// OrgID returns the owning organization, empty when tenant-global.
func (o *Object) OrgID() string { return o.orgID }

// RawText returns the searchable text owned by the ingestion path.
func (o *Object) RawText() string { return o.rawText }

// Payload returns the opaque display payload.
func (o *Object) Payload() []byte { return o.payload }

// Tokens returns the derived token representation.
func (o *Object) Tokens() string { return o.tokens }

// Vector returns the similarity embedding, nil when not yet computed.
func (o *Object) Vector() []float32 { return o.vector }

// LearnedKeywords returns the vocabulary owned by the learning applier.
func (o *Object) LearnedKeywords() string { return o.learnedKeywords }

// LearnedAt returns when learned vocabulary last changed.
func (o *Object) LearnedAt() time.Time { return o.learnedAt }

// ContentFP returns the fingerprint of (rawText, learnedKeywords).
func (o *Object) ContentFP() string { return o.contentFP }

// EmbeddingFP returns the fingerprint the current vector was computed from.
func (o *Object) EmbeddingFP() string { return o.embeddingFP }

// EmbeddingStatus returns the vector freshness state.
func (o *Object) EmbeddingStatus() EmbeddingStatus { return o.embeddingStatus }

// UpdatedAt returns the last write time of either owner.
func (o *Object) UpdatedAt() time.Time { return o.updatedAt }

// SearchableText returns the text both the fuzzy signal and the embedding
// worker operate on: raw text plus learned vocabulary.
func (o *Object) SearchableText() string {
	if o.learnedKeywords == "" {
		return o.rawText
	}
	return o.rawText + " " + o.learnedKeywords
}
