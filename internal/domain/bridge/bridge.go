// Package bridge holds the learned vocabulary bridge aggregate.
package bridge

import (
	"fmt"
	"strings"
	"time"
)

// Bridge is a learned association between a literal query and one catalog
// object, derived from repeated clicks. Identity is
// (tenant, object type, object id, normalized query). A bridge never spans
// more than one tenant.
type Bridge struct {
	tenant      string
	objectType  string
	objectID    string
	query       string
	clickCount  int
	applied     bool
	appliedAt   time.Time
	firstSeenAt time.Time
	lastSeenAt  time.Time
}

// NormalizeQuery lowercases and trims a raw query for bridge identity.
func NormalizeQuery(queryText string) string {
	return strings.ToLower(strings.TrimSpace(queryText))
}

// New validates and creates an unapplied Bridge.
func New(
	tenant, objectType, objectID, queryText string,
	clickCount int, firstSeen, lastSeen time.Time,
) (Bridge, error) {
	if tenant == "" {
		return Bridge{}, fmt.Errorf("tenant is required")
	}
	if objectType == "" || objectID == "" {
		return Bridge{}, fmt.Errorf("object type and id are required")
	}
	query := NormalizeQuery(queryText)
	if query == "" {
		return Bridge{}, fmt.Errorf("query text is required")
	}
	if clickCount < 1 {
		return Bridge{}, fmt.Errorf("click count must be >= 1")
	}
	return Bridge{
		tenant:      tenant,
		objectType:  objectType,
		objectID:    objectID,
		query:       query,
		clickCount:  clickCount,
		firstSeenAt: firstSeen,
		lastSeenAt:  lastSeen,
	}, nil
}

// Reconstruct rebuilds a Bridge from storage without validation.
func Reconstruct(
	tenant, objectType, objectID, query string,
	clickCount int, applied bool,
	appliedAt, firstSeen, lastSeen time.Time,
) Bridge {
	return Bridge{
		tenant: tenant, objectType: objectType, objectID: objectID,
		query: query, clickCount: clickCount, applied: applied,
		appliedAt: appliedAt, firstSeenAt: firstSeen, lastSeenAt: lastSeen,
	}
}

// Tenant returns the tenant the bridge was learned from.
func (b *Bridge) Tenant() string { return b.tenant }

// ObjectType returns the bridged object's type.
func (b *Bridge) ObjectType() string { return b.objectType }

// ObjectID returns the bridged object's id.
func (b *Bridge) ObjectID() string { return b.objectID }

// Query returns the normalized query text.
func (b *Bridge) Query() string { return b.query }

// ClickCount returns the aggregated click count, monotonic until applied.
func (b *Bridge) ClickCount() int { return b.clickCount }

// Applied reports whether the bridge vocabulary reached the index row.
func (b *Bridge) Applied() bool { return b.applied }

// AppliedAt returns when the bridge was applied, zero when unapplied.
func (b *Bridge) AppliedAt() time.Time { return b.appliedAt }

// FirstSeenAt returns when the association was first observed.
func (b *Bridge) FirstSeenAt() time.Time { return b.firstSeenAt }

// LastSeenAt returns when the association was last observed.
func (b *Bridge) LastSeenAt() time.Time { return b.lastSeenAt }

// MergeCounts folds a fresh aggregation pass into the stored bridge.
// The click count never decreases regardless of processing order; seen
// times widen to cover both observations.
func (b Bridge) MergeCounts(other Bridge) Bridge {
	merged := b
	if other.clickCount > merged.clickCount {
		merged.clickCount = other.clickCount
	}
	if merged.firstSeenAt.IsZero() || (!other.firstSeenAt.IsZero() && other.firstSeenAt.Before(merged.firstSeenAt)) {
		merged.firstSeenAt = other.firstSeenAt
	}
	if other.lastSeenAt.After(merged.lastSeenAt) {
		merged.lastSeenAt = other.lastSeenAt
	}
	return merged
}

// MarkApplied returns a copy flagged applied at the given time.
func (b Bridge) MarkApplied(at time.Time) Bridge {
	applied := b
	applied.applied = true
	applied.appliedAt = at
	return applied
}
