package index

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/domain/scope"
	"github.com/harborline/catalogsearch/internal/textproc"
)

// memStore implements the consumer store interface in memory so the
// scoped-scan paths run for real in tests.
type memStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		h, err := m.HGetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes, key)
	return nil
}

func (m *memStore) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	if s == nil {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, mem := range members {
		s[mem] = struct{}{}
	}
	return nil
}

func (m *memStore) SRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range members {
		delete(m.sets[key], mem)
	}
	return nil
}

func (m *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for mem := range m.sets[key] {
		out = append(out, mem)
	}
	return out, nil
}

func newTestRepo() (*Repo, *memStore) {
	ms := newMemStore()
	return New(ms), ms
}

func mustKey(t *testing.T, tenant, objectType, id string) object.Key {
	t.Helper()
	k, err := object.NewKey(tenant, objectType, id)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func mustScope(t *testing.T, tenant, org string, types []string) scope.Scope {
	t.Helper()
	sc, err := scope.New(tenant, org, types)
	if err != nil {
		t.Fatalf("scope.New: %v", err)
	}
	return sc
}

// seedObject inserts a row the way the ingest service would.
func seedObject(t *testing.T, r *Repo, tenant, objectType, id, rawText string) object.Key {
	t.Helper()
	key := mustKey(t, tenant, objectType, id)
	obj, err := object.New(key, "", rawText, []byte(`{}`))
	if err != nil {
		t.Fatalf("object.New: %v", err)
	}
	tokens := textproc.DeriveTokens(rawText, "")
	fp := textproc.Fingerprint(rawText, "")
	if err := r.UpsertContent(context.Background(), obj, tokens, fp, true, time.Now()); err != nil {
		t.Fatalf("UpsertContent: %v", err)
	}
	return key
}
