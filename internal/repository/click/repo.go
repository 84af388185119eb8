// Package click implements the append-only click telemetry store.
package click

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/click"
)

// store is the consumer interface for click telemetry (ISP).
type store interface {
	SetNXWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores click events as immutable JSON blobs, one per identity.
// The retention TTL makes rows beyond the purge horizon disappear without
// this subsystem ever issuing a delete.
type Repo struct {
	store     store
	retention time.Duration
}

// New creates a click telemetry repository.
func New(s store, retention time.Duration) *Repo {
	return &Repo{store: s, retention: retention}
}

// Record appends an event. A duplicate identity is already-recorded:
// silent success, never an error. Returns whether the event was new.
func (r *Repo) Record(ctx context.Context, e click.Event) (bool, error) {
	data, err := json.Marshal(toDTO(e))
	if err != nil {
		return false, fmt.Errorf("marshal click: %w", err)
	}
	key := eventKey(e.Tenant(), e.SessionID(), e.ObjectType(), e.ObjectID())
	written, err := r.store.SetNXWithTTL(ctx, key, data, r.retention)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return written, nil
}

// ListSince returns the tenant's events clicked at or after cutoff.
// The key layout scopes the scan to one tenant; nothing else is visible.
func (r *Repo) ListSince(ctx context.Context, tenant string, cutoff time.Time) ([]click.Event, error) {
	pattern := fmt.Sprintf("%sclick:%s:*", domain.KeyPrefix, tenant)
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan clicks %s: %w", tenant, err)
	}

	events := make([]click.Event, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			// Expired between SCAN and GET.
			continue
		}
		var dto eventDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return nil, fmt.Errorf("unmarshal click %s: %w", key, err)
		}
		e := dto.toDomain()
		if e.ClickedAt().Before(cutoff) {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func eventKey(tenant, session, objectType, objectID string) string {
	return fmt.Sprintf("%sclick:%s:%s:%s:%s", domain.KeyPrefix, tenant, session, objectType, objectID)
}
