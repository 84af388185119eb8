// Package bridge implements the learned vocabulary bridge store.
package bridge

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/harborline/catalogsearch/internal/domain"
	dombridge "github.com/harborline/catalogsearch/internal/domain/bridge"
)

// store is the consumer interface for the bridge store (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores one hash per bridge identity. Bridges are never deleted;
// applied ones stay behind as the audit trail of what was learned when.
type Repo struct {
	store store
}

// New creates a bridge repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert folds an aggregated bridge into the stored one. Click counts
// never decrease and an applied marker is never un-set, so replaying an
// aggregation pass in any order converges on the same row.
func (r *Repo) Upsert(ctx context.Context, b dombridge.Bridge) (dombridge.Bridge, error) {
	key := bridgeKey(b.Tenant(), b.ObjectType(), b.ObjectID(), b.Query())
	current, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return dombridge.Bridge{}, fmt.Errorf("hgetall %s: %w", key, err)
	}

	merged := b
	if len(current) > 0 {
		stored := bridgeFromFields(current)
		merged = stored.MergeCounts(b)
	}

	if err := r.store.HSet(ctx, key, fieldsFromBridge(merged)); err != nil {
		return dombridge.Bridge{}, fmt.Errorf("hset %s: %w", key, err)
	}
	return merged, nil
}

// MarkApplied flags a bridge applied. Idempotent: a second call just
// rewrites the same marker.
func (r *Repo) MarkApplied(ctx context.Context, b dombridge.Bridge, at time.Time) (dombridge.Bridge, error) {
	applied := b.MarkApplied(at)
	key := bridgeKey(b.Tenant(), b.ObjectType(), b.ObjectID(), b.Query())
	if err := r.store.HSet(ctx, key, fieldsFromBridge(applied)); err != nil {
		return dombridge.Bridge{}, fmt.Errorf("hset %s: %w", key, err)
	}
	return applied, nil
}

// Get returns one bridge by identity.
func (r *Repo) Get(
	ctx context.Context, tenant, objectType, objectID, queryText string,
) (dombridge.Bridge, error) {
	key := bridgeKey(tenant, objectType, objectID, dombridge.NormalizeQuery(queryText))
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return dombridge.Bridge{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return dombridge.Bridge{}, domain.ErrObjectNotFound
	}
	return bridgeFromFields(fields), nil
}

// ListUnapplied returns the tenant's unapplied bridges with at least
// minClicks, in deterministic (key) order. The scan pattern is
// tenant-prefixed, so a bridge can never be seen from another tenant.
func (r *Repo) ListUnapplied(ctx context.Context, tenant string, minClicks int) ([]dombridge.Bridge, error) {
	pattern := fmt.Sprintf("%sbridge:%s:*", domain.KeyPrefix, tenant)
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan bridges %s: %w", tenant, err)
	}
	sort.Strings(keys)

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate bridges %s: %w", tenant, err)
	}

	out := make([]dombridge.Bridge, 0, len(maps))
	for _, fields := range maps {
		if len(fields) == 0 {
			continue
		}
		b := bridgeFromFields(fields)
		if b.Applied() || b.ClickCount() < minClicks {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// bridgeKey hex-encodes the normalized query so arbitrary user text can
// never break the key structure.
func bridgeKey(tenant, objectType, objectID, normQuery string) string {
	return fmt.Sprintf("%sbridge:%s:%s:%s:%s",
		domain.KeyPrefix, tenant, objectType, objectID,
		hex.EncodeToString([]byte(normQuery)))
}
