// Package index implements the per-tenant denormalized index store and
// the three per-request retrieval signals over it.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/domain/rank"
	"github.com/harborline/catalogsearch/internal/domain/scope"
	"github.com/harborline/catalogsearch/internal/textproc"
)

// store is the consumer interface for the index store (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo implements the index store over a hash-per-row layout with a
// per-tenant registry set for scoped scans.
type Repo struct {
	store store
}

// New creates an index repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// UpsertContent writes the ingestion-owned fields of a row: raw text,
// payload and the representations derived from them. It never writes
// learned_keywords or learned_at; those belong to the learning applier.
// markPending flips embedding_status when the content fingerprint moved.
func (r *Repo) UpsertContent(
	ctx context.Context, obj object.Object,
	tokens, contentFP string, markPending bool, now time.Time,
) error {
	key := rowKey(obj.Key())
	fields := map[string]string{
		fieldOrgID:     obj.OrgID(),
		fieldRawText:   obj.RawText(),
		fieldPayload:   string(obj.Payload()),
		fieldTokens:    tokens,
		fieldContentFP: contentFP,
		fieldUpdatedAt: formatTime(now),
	}
	if markPending {
		fields[fieldEmbStatus] = string(object.EmbeddingPending)
	}

	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.store.SAdd(ctx, registryKey(obj.Key().Tenant), key); err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}
	if err := r.store.SAdd(ctx, tenantsKey(), obj.Key().Tenant); err != nil {
		return fmt.Errorf("register tenant %s: %w", obj.Key().Tenant, err)
	}
	return nil
}

// ApplyLearnedKeywords conditionally writes the applier-owned fields.
// The write happens only when the stored learned_keywords differ from
// keywords, so overlapping applier runs and concurrent ingestion refreshes
// do not conflict. Returns whether a write happened and whether the
// content fingerprint moved (i.e. re-embedding is due).
func (r *Repo) ApplyLearnedKeywords(
	ctx context.Context, key object.Key,
	keywords, tokens, contentFP string, now time.Time,
) (applied, fpChanged bool, err error) {
	k := rowKey(key)
	current, err := r.store.HGetAll(ctx, k)
	if err != nil {
		return false, false, fmt.Errorf("hgetall %s: %w", k, err)
	}
	if len(current) == 0 {
		return false, false, domain.ErrObjectNotFound
	}
	if current[fieldLearned] == keywords {
		return false, false, nil
	}

	fpChanged = current[fieldContentFP] != contentFP
	fields := map[string]string{
		fieldLearned:   keywords,
		fieldLearnedAt: formatTime(now),
		fieldTokens:    tokens,
		fieldContentFP: contentFP,
	}
	if fpChanged {
		fields[fieldEmbStatus] = string(object.EmbeddingPending)
	}
	if err := r.store.HSet(ctx, k, fields); err != nil {
		return false, false, fmt.Errorf("hset %s: %w", k, err)
	}
	return true, fpChanged, nil
}

// SetEmbedding writes the embedding-worker-owned fields and marks the
// row done.
func (r *Repo) SetEmbedding(ctx context.Context, key object.Key, vector []float32, embeddingFP string) error {
	k := rowKey(key)
	fields := map[string]string{
		fieldVector:    vectorToBytes(vector),
		fieldEmbFP:     embeddingFP,
		fieldEmbStatus: string(object.EmbeddingDone),
	}
	if err := r.store.HSet(ctx, k, fields); err != nil {
		return fmt.Errorf("hset %s: %w", k, err)
	}
	return nil
}

// MarkEmbeddingFailed records a terminal embedding failure on the row.
func (r *Repo) MarkEmbeddingFailed(ctx context.Context, key object.Key) error {
	k := rowKey(key)
	if err := r.store.HSet(ctx, k, map[string]string{
		fieldEmbStatus: string(object.EmbeddingFailed),
	}); err != nil {
		return fmt.Errorf("hset %s: %w", k, err)
	}
	return nil
}

// Get returns one row by identity.
func (r *Repo) Get(ctx context.Context, key object.Key) (object.Object, error) {
	k := rowKey(key)
	fields, err := r.store.HGetAll(ctx, k)
	if err != nil {
		return object.Object{}, fmt.Errorf("hgetall %s: %w", k, err)
	}
	if len(fields) == 0 {
		return object.Object{}, domain.ErrObjectNotFound
	}
	return objectFromFields(key, fields), nil
}

// GetMulti returns rows for the given identities, skipping missing ones.
func (r *Repo) GetMulti(ctx context.Context, keys []object.Key) ([]object.Object, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rowKeys := make([]string, len(keys))
	for i, k := range keys {
		rowKeys[i] = rowKey(k)
	}
	maps, err := r.store.HGetAllMulti(ctx, rowKeys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}
	out := make([]object.Object, 0, len(keys))
	for i, fields := range maps {
		if len(fields) == 0 {
			continue
		}
		out = append(out, objectFromFields(keys[i], fields))
	}
	return out, nil
}

// Delete removes a row and its registry membership.
func (r *Repo) Delete(ctx context.Context, key object.Key) error {
	k := rowKey(key)
	if err := r.store.Del(ctx, k); err != nil {
		return fmt.Errorf("del %s: %w", k, err)
	}
	if err := r.store.SRem(ctx, registryKey(key.Tenant), k); err != nil {
		return fmt.Errorf("unregister %s: %w", k, err)
	}
	return nil
}

// Tenants lists every tenant that has at least one indexed row.
func (r *Repo) Tenants(ctx context.Context) ([]string, error) {
	tenants, err := r.store.SMembers(ctx, tenantsKey())
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	sort.Strings(tenants)
	return tenants, nil
}

// SearchTrigram is the fuzzy lexical signal: trigram similarity of the
// rewrite against each row's raw text plus learned vocabulary. Rows
// below floor are dropped; at most limit candidates come back, ranked
// 1..N by similarity descending.
func (r *Repo) SearchTrigram(
	ctx context.Context, sc scope.Scope, queryText string, limit int, floor float64,
) ([]rank.Candidate, error) {
	rows, err := r.loadScope(ctx, sc)
	if err != nil {
		return nil, err
	}
	candidates := make([]rank.Candidate, 0, len(rows))
	for i := range rows {
		sim := textproc.TrigramSimilarity(queryText, rows[i].SearchableText())
		if sim < floor || sim == 0 {
			continue
		}
		candidates = append(candidates, rank.Candidate{Key: rows[i].Key(), Score: sim})
	}
	return top(candidates, limit), nil
}

// SearchTokens is the exact/stemmed lexical signal: term relevance of the
// rewrite against the derived token representation.
func (r *Repo) SearchTokens(
	ctx context.Context, sc scope.Scope, queryText string, limit int,
) ([]rank.Candidate, error) {
	rows, err := r.loadScope(ctx, sc)
	if err != nil {
		return nil, err
	}
	candidates := make([]rank.Candidate, 0, len(rows))
	for i := range rows {
		rel := textproc.TokenRelevance(queryText, rows[i].Tokens())
		if rel == 0 {
			continue
		}
		candidates = append(candidates, rank.Candidate{Key: rows[i].Key(), Score: rel})
	}
	return top(candidates, limit), nil
}

// SearchVector is the embedding signal: cosine similarity of the rewrite
// embedding against row vectors, mapped onto [0,1]. Rows without a
// current vector are invisible to this signal.
func (r *Repo) SearchVector(
	ctx context.Context, sc scope.Scope, vector []float32, limit int,
) ([]rank.Candidate, error) {
	rows, err := r.loadScope(ctx, sc)
	if err != nil {
		return nil, err
	}
	candidates := make([]rank.Candidate, 0, len(rows))
	for i := range rows {
		v := rows[i].Vector()
		if len(v) == 0 {
			continue
		}
		sim := textproc.VectorSimilarity(vector, v)
		if sim == 0 {
			continue
		}
		candidates = append(candidates, rank.Candidate{Key: rows[i].Key(), Score: sim})
	}
	return top(candidates, limit), nil
}

// loadScope fetches every row visible to the scope. The registry set
// keys the scan to one tenant; type and org narrowing happen before and
// after hydration respectively, so nothing outside the scope survives.
func (r *Repo) loadScope(ctx context.Context, sc scope.Scope) ([]object.Object, error) {
	members, err := r.store.SMembers(ctx, registryKey(sc.Tenant()))
	if err != nil {
		return nil, fmt.Errorf("scan scope %s: %w", sc.Tenant(), err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	sort.Strings(members) // deterministic hydration order

	keys := make([]object.Key, 0, len(members))
	rowKeys := make([]string, 0, len(members))
	for _, m := range members {
		key, ok := parseRowKey(m)
		if !ok || key.Tenant != sc.Tenant() || !sc.AllowsType(key.Type) {
			continue
		}
		keys = append(keys, key)
		rowKeys = append(rowKeys, m)
	}
	if len(rowKeys) == 0 {
		return nil, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, rowKeys)
	if err != nil {
		return nil, fmt.Errorf("hydrate scope %s: %w", sc.Tenant(), err)
	}
	rows := make([]object.Object, 0, len(maps))
	for i, fields := range maps {
		if len(fields) == 0 {
			continue
		}
		obj := objectFromFields(keys[i], fields)
		if !sc.AllowsOrg(obj.OrgID()) {
			continue
		}
		rows = append(rows, obj)
	}
	return rows, nil
}

// top sorts candidates by score descending (key order breaks ties so
// ranking is deterministic), truncates to limit and assigns 1-based ranks.
func top(candidates []rank.Candidate, limit int) []rank.Candidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Key.String() < candidates[j].Key.String()
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

func rowKey(key object.Key) string {
	return fmt.Sprintf("%sobj:%s:%s:%s", domain.KeyPrefix, key.Tenant, key.Type, key.ID)
}

func registryKey(tenant string) string {
	return fmt.Sprintf("%sobjset:%s", domain.KeyPrefix, tenant)
}

func tenantsKey() string {
	return domain.KeyPrefix + "tenants"
}

// parseRowKey recovers the object identity from a row key.
func parseRowKey(k string) (object.Key, bool) {
	rest, ok := strings.CutPrefix(k, domain.KeyPrefix+"obj:")
	if !ok {
		return object.Key{}, false
	}
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return object.Key{}, false
	}
	return object.Key{Tenant: parts[0], Type: parts[1], ID: parts[2]}, true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
