package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/textproc"
)

// --- Mocks ---

type upsertCall struct {
	obj         object.Object
	tokens      string
	contentFP   string
	markPending bool
}

type mockIndex struct {
	getFn func(key object.Key) (object.Object, error)

	upserts []upsertCall
	deletes []object.Key
}

func (m *mockIndex) Get(_ context.Context, key object.Key) (object.Object, error) {
	if m.getFn == nil {
		return object.Object{}, domain.ErrObjectNotFound
	}
	return m.getFn(key)
}

func (m *mockIndex) UpsertContent(
	_ context.Context, obj object.Object,
	tokens, contentFP string, markPending bool, _ time.Time,
) error {
	m.upserts = append(m.upserts, upsertCall{obj, tokens, contentFP, markPending})
	return nil
}

func (m *mockIndex) Delete(_ context.Context, key object.Key) error {
	m.deletes = append(m.deletes, key)
	return nil
}

type mockJobs struct {
	enqueued []object.Key
}

func (m *mockJobs) Enqueue(_ context.Context, key object.Key, _ int, _ time.Time) error {
	m.enqueued = append(m.enqueued, key)
	return nil
}

func storedObject(key object.Key, rawText, learned string) object.Object {
	return object.Reconstruct(
		key, "", rawText, nil,
		textproc.DeriveTokens(rawText, learned), nil,
		learned, time.Time{},
		textproc.Fingerprint(rawText, learned), "", object.EmbeddingDone, time.Time{},
	)
}

func TestUpsert_NewObjectEnqueuesJob(t *testing.T) {
	idx := &mockIndex{}
	jobs := &mockJobs{}
	svc := New(idx, jobs, nil)

	err := svc.Upsert(context.Background(), "Y1", "equipment", "E1", "", "Main Engine Cooling Pump", []byte(`{}`))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(idx.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(idx.upserts))
	}
	up := idx.upserts[0]
	if !up.markPending {
		t.Fatal("first write must mark the row pending")
	}
	if up.tokens != textproc.DeriveTokens("Main Engine Cooling Pump", "") {
		t.Fatalf("tokens not derived from raw text: %q", up.tokens)
	}
	if len(jobs.enqueued) != 1 {
		t.Fatalf("expected 1 embedding job, got %d", len(jobs.enqueued))
	}
}

func TestUpsert_IdenticalContentIsNoOpForEmbedding(t *testing.T) {
	key := object.Key{Tenant: "Y1", Type: "equipment", ID: "E1"}
	idx := &mockIndex{
		getFn: func(object.Key) (object.Object, error) {
			return storedObject(key, "Main Engine Cooling Pump", ""), nil
		},
	}
	jobs := &mockJobs{}
	svc := New(idx, jobs, nil)

	err := svc.Upsert(context.Background(), "Y1", "equipment", "E1", "", "Main Engine Cooling Pump", []byte(`{}`))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if idx.upserts[0].markPending {
		t.Fatal("unchanged fingerprint must not flip pending")
	}
	if len(jobs.enqueued) != 0 {
		t.Fatal("unchanged fingerprint must not enqueue a job")
	}
}

func TestUpsert_PreservesLearnedVocabularyInDerivations(t *testing.T) {
	// A refresh of raw text keeps the row's learned keywords flowing
	// into tokens and fingerprint, so learned recall survives ingestion.
	key := object.Key{Tenant: "Y1", Type: "equipment", ID: "E1"}
	idx := &mockIndex{
		getFn: func(object.Key) (object.Object, error) {
			return storedObject(key, "Main Engine Cooling Pump", "seawater pump"), nil
		},
	}
	jobs := &mockJobs{}
	svc := New(idx, jobs, nil)

	err := svc.Upsert(context.Background(), "Y1", "equipment", "E1", "", "Main Engine Cooling Pump Mk2", nil)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	up := idx.upserts[0]
	if up.tokens != textproc.DeriveTokens("Main Engine Cooling Pump Mk2", "seawater pump") {
		t.Fatalf("learned keywords dropped from tokens: %q", up.tokens)
	}
	if up.contentFP != textproc.Fingerprint("Main Engine Cooling Pump Mk2", "seawater pump") {
		t.Fatal("learned keywords dropped from fingerprint")
	}
	if !up.markPending || len(jobs.enqueued) != 1 {
		t.Fatal("changed raw text must schedule re-embedding")
	}
}

func TestUpsert_InvalidIdentity(t *testing.T) {
	svc := New(&mockIndex{}, &mockJobs{}, nil)
	err := svc.Upsert(context.Background(), "Y1", "equip ment", "E1", "", "text", nil)
	if !errors.Is(err, domain.ErrInvalidObject) {
		t.Fatalf("expected ErrInvalidObject, got %v", err)
	}
}

func TestUpsert_EmptyRawText(t *testing.T) {
	svc := New(&mockIndex{}, &mockJobs{}, nil)
	err := svc.Upsert(context.Background(), "Y1", "equipment", "E1", "", "", nil)
	if !errors.Is(err, domain.ErrInvalidObject) {
		t.Fatalf("expected ErrInvalidObject, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	idx := &mockIndex{}
	svc := New(idx, &mockJobs{}, nil)
	if err := svc.Delete(context.Background(), "Y1", "equipment", "E1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(idx.deletes) != 1 || idx.deletes[0].ID != "E1" {
		t.Fatalf("delete not forwarded: %+v", idx.deletes)
	}
}
