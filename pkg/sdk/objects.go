package catalogsearch

import (
	"context"
	"fmt"
	"time"
)

// ObjectUpsert is the ingestion payload for one catalog object.
type ObjectUpsert struct {
	OrgID   string // optional owning org
	RawText string // searchable text, required
	Payload []byte // opaque JSON returned verbatim in search results
}

// Upsert indexes or re-indexes a catalog object. Unchanged content is a
// cheap no-op for the embedding pipeline: the vector is only recomputed
// when the searchable text actually moved.
func (c *Client) Upsert(ctx context.Context, tenant, objectType, objectID string, up ObjectUpsert) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("upsert", start, err) }()

	if err = c.ingestSvc.Upsert(ctx, tenant, objectType, objectID, up.OrgID, up.RawText, up.Payload); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Delete retracts an object. Deleting an absent object is a success.
func (c *Client) Delete(ctx context.Context, tenant, objectType, objectID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	if err = c.ingestSvc.Delete(ctx, tenant, objectType, objectID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
