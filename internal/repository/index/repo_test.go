package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/textproc"
)

func TestUpsertContent_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo()
	key := seedObject(t, repo, "Y1", "equipment", "E1", "Main Engine")

	got, err := repo.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RawText() != "Main Engine" {
		t.Errorf("raw text: got %q", got.RawText())
	}
	if got.Tokens() != "main engine" {
		t.Errorf("tokens: got %q", got.Tokens())
	}
	if got.EmbeddingStatus() != object.EmbeddingPending {
		t.Errorf("status: got %s", got.EmbeddingStatus())
	}
}

func TestUpsertContent_PreservesLearnedKeywords(t *testing.T) {
	repo, _ := newTestRepo()
	key := seedObject(t, repo, "Y1", "part", "P1", "Watermaker Membrane")

	tokens := textproc.DeriveTokens("Watermaker Membrane", "desal")
	fp := textproc.Fingerprint("Watermaker Membrane", "desal")
	applied, fpChanged, err := repo.ApplyLearnedKeywords(
		context.Background(), key, "desal", tokens, fp, time.Now())
	if err != nil || !applied || !fpChanged {
		t.Fatalf("ApplyLearnedKeywords: applied=%v fpChanged=%v err=%v", applied, fpChanged, err)
	}

	// An ingestion refresh must not clear the learned vocabulary.
	obj, _ := object.New(key, "", "Watermaker Membrane 40in", []byte(`{}`))
	newTokens := textproc.DeriveTokens("Watermaker Membrane 40in", "desal")
	newFP := textproc.Fingerprint("Watermaker Membrane 40in", "desal")
	if err := repo.UpsertContent(context.Background(), obj, newTokens, newFP, true, time.Now()); err != nil {
		t.Fatalf("UpsertContent: %v", err)
	}

	got, err := repo.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LearnedKeywords() != "desal" {
		t.Fatalf("learned keywords clobbered: %q", got.LearnedKeywords())
	}
	if got.RawText() != "Watermaker Membrane 40in" {
		t.Fatalf("raw text not refreshed: %q", got.RawText())
	}
}

func TestApplyLearnedKeywords_NoOpOnIdenticalValue(t *testing.T) {
	repo, _ := newTestRepo()
	key := seedObject(t, repo, "Y1", "part", "P1", "Watermaker Membrane")

	tokens := textproc.DeriveTokens("Watermaker Membrane", "desal")
	fp := textproc.Fingerprint("Watermaker Membrane", "desal")
	ctx := context.Background()

	if applied, _, err := repo.ApplyLearnedKeywords(ctx, key, "desal", tokens, fp, time.Now()); err != nil || !applied {
		t.Fatalf("first apply: applied=%v err=%v", applied, err)
	}
	applied, fpChanged, err := repo.ApplyLearnedKeywords(ctx, key, "desal", tokens, fp, time.Now())
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if applied || fpChanged {
		t.Fatalf("identical value must be a no-op: applied=%v fpChanged=%v", applied, fpChanged)
	}
}

func TestApplyLearnedKeywords_MissingRow(t *testing.T) {
	repo, _ := newTestRepo()
	key := mustKey(t, "Y1", "part", "ghost")
	_, _, err := repo.ApplyLearnedKeywords(context.Background(), key, "x", "x", "fp", time.Now())
	if !errors.Is(err, domain.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestSearchTrigram_MisspelledQuery(t *testing.T) {
	repo, _ := newTestRepo()
	seedObject(t, repo, "Y1", "equipment", "E1", "Main Engine")
	seedObject(t, repo, "Y1", "equipment", "E2", "Bow Thruster")

	sc := mustScope(t, "Y1", "", nil)
	hits, err := repo.SearchTrigram(context.Background(), sc, "main egnine", 100, 0.15)
	if err != nil {
		t.Fatalf("SearchTrigram: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected a fuzzy hit for the misspelled query")
	}
	if hits[0].Key.ID != "E1" || hits[0].Rank != 1 {
		t.Fatalf("expected E1 at rank 1, got %s at rank %d", hits[0].Key.ID, hits[0].Rank)
	}
}

func TestSearchTrigram_Floor(t *testing.T) {
	repo, _ := newTestRepo()
	seedObject(t, repo, "Y1", "equipment", "E1", "Main Engine")

	sc := mustScope(t, "Y1", "", nil)
	hits, err := repo.SearchTrigram(context.Background(), sc, "propeller shaft", 100, 0.15)
	if err != nil {
		t.Fatalf("SearchTrigram: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("unrelated query must not clear the floor, got %d hits", len(hits))
	}
}

func TestSearchTokens_StemmedMatch(t *testing.T) {
	repo, _ := newTestRepo()
	seedObject(t, repo, "Y1", "part", "F1", "Oil Filters")
	seedObject(t, repo, "Y1", "part", "F2", "Fuel Pump")

	sc := mustScope(t, "Y1", "", nil)
	hits, err := repo.SearchTokens(context.Background(), sc, "oil filter", 100)
	if err != nil {
		t.Fatalf("SearchTokens: %v", err)
	}
	if len(hits) != 1 || hits[0].Key.ID != "F1" {
		t.Fatalf("expected only F1, got %v", hits)
	}
}

func TestSearchVector_SkipsRowsWithoutVector(t *testing.T) {
	repo, _ := newTestRepo()
	k1 := seedObject(t, repo, "Y1", "part", "P1", "Impeller")
	seedObject(t, repo, "Y1", "part", "P2", "Anode")

	if err := repo.SetEmbedding(context.Background(), k1, []float32{1, 0, 0}, "fp"); err != nil {
		t.Fatalf("SetEmbedding: %v", err)
	}

	sc := mustScope(t, "Y1", "", nil)
	hits, err := repo.SearchVector(context.Background(), sc, []float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatalf("SearchVector: %v", err)
	}
	if len(hits) != 1 || hits[0].Key.ID != "P1" {
		t.Fatalf("expected only the embedded row, got %v", hits)
	}
	if hits[0].Score < 0.99 {
		t.Fatalf("identical vectors should score ~1, got %f", hits[0].Score)
	}
}

func TestSearch_TenantIsolation(t *testing.T) {
	repo, _ := newTestRepo()
	seedObject(t, repo, "Y1", "part", "P1", "Oil Filter")
	seedObject(t, repo, "Y2", "part", "P2", "Oil Filter")

	sc := mustScope(t, "Y1", "", nil)
	hits, err := repo.SearchTokens(context.Background(), sc, "oil filter", 100)
	if err != nil {
		t.Fatalf("SearchTokens: %v", err)
	}
	for _, h := range hits {
		if h.Key.Tenant != "Y1" {
			t.Fatalf("scope leak: got row from tenant %s", h.Key.Tenant)
		}
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly the Y1 row, got %d", len(hits))
	}
}

func TestSearch_TypeAllowList(t *testing.T) {
	repo, _ := newTestRepo()
	seedObject(t, repo, "Y1", "part", "P1", "Oil Filter")
	seedObject(t, repo, "Y1", "document", "D1", "Oil Filter Manual")

	sc := mustScope(t, "Y1", "", []string{"document"})
	hits, err := repo.SearchTokens(context.Background(), sc, "oil filter", 100)
	if err != nil {
		t.Fatalf("SearchTokens: %v", err)
	}
	if len(hits) != 1 || hits[0].Key.Type != "document" {
		t.Fatalf("type allow-list not applied: %v", hits)
	}
}

func TestSearch_CandidateCap(t *testing.T) {
	repo, _ := newTestRepo()
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		seedObject(t, repo, "Y1", "part", id, "oil filter "+id)
	}

	sc := mustScope(t, "Y1", "", nil)
	hits, err := repo.SearchTokens(context.Background(), sc, "oil filter", 3)
	if err != nil {
		t.Fatalf("SearchTokens: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(hits))
	}
	for i, h := range hits {
		if h.Rank != i+1 {
			t.Errorf("rank %d at position %d", h.Rank, i)
		}
	}
}

func TestDelete_RemovesFromScope(t *testing.T) {
	repo, _ := newTestRepo()
	key := seedObject(t, repo, "Y1", "part", "P1", "Oil Filter")

	if err := repo.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	sc := mustScope(t, "Y1", "", nil)
	hits, err := repo.SearchTokens(context.Background(), sc, "oil filter", 100)
	if err != nil {
		t.Fatalf("SearchTokens: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("deleted row still searchable: %v", hits)
	}
	if _, err := repo.Get(context.Background(), key); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	repo, _ := newTestRepo()
	key := seedObject(t, repo, "Y1", "part", "P1", "Impeller")

	vec := []float32{0.25, -1.5, 3.75}
	if err := repo.SetEmbedding(context.Background(), key, vec, "fp1"); err != nil {
		t.Fatalf("SetEmbedding: %v", err)
	}
	got, err := repo.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Vector()) != 3 {
		t.Fatalf("vector length %d", len(got.Vector()))
	}
	for i, f := range vec {
		if got.Vector()[i] != f {
			t.Errorf("vector[%d] = %f, want %f", i, got.Vector()[i], f)
		}
	}
	if got.EmbeddingStatus() != object.EmbeddingDone {
		t.Errorf("status %s after SetEmbedding", got.EmbeddingStatus())
	}
	if got.EmbeddingFP() != "fp1" {
		t.Errorf("embedding fp %q", got.EmbeddingFP())
	}
}
