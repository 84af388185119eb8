package catalogsearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/domain/query"
	"github.com/harborline/catalogsearch/internal/domain/rank"
	"github.com/harborline/catalogsearch/internal/domain/scope"
	healthuc "github.com/harborline/catalogsearch/internal/usecase/health"
)

type mockSearch struct {
	fn func(ctx context.Context, sc scope.Scope, req query.Request) ([]rank.Fused, error)
}

func (m *mockSearch) Search(ctx context.Context, sc scope.Scope, req query.Request) ([]rank.Fused, error) {
	return m.fn(ctx, sc, req)
}

type mockIngest struct {
	upserts int
	deletes int
	err     error
}

func (m *mockIngest) Upsert(context.Context, string, string, string, string, string, []byte) error {
	m.upserts++
	return m.err
}

func (m *mockIngest) Delete(context.Context, string, string, string) error {
	m.deletes++
	return m.err
}

type mockTelemetry struct {
	tenant string
	rank   int
	err    error
}

func (m *mockTelemetry) Record(
	_ context.Context,
	tenant, _, _, _, _, _, _ string,
	rank int, _ float64, _ time.Time,
) error {
	m.tenant = tenant
	m.rank = rank
	return m.err
}

type mockLearning struct {
	runs int
	err  error
}

func (m *mockLearning) RunOnce(context.Context) error {
	m.runs++
	return m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func TestSearch_ConvertsResults(t *testing.T) {
	k := object.Key{Tenant: "Y1", Type: "part", ID: "pump-003"}
	search := &mockSearch{
		fn: func(_ context.Context, sc scope.Scope, req query.Request) ([]rank.Fused, error) {
			if sc.Tenant() != "Y1" {
				t.Errorf("tenant: got %q", sc.Tenant())
			}
			if req.PageSize() != 20 {
				t.Errorf("page size default: got %d", req.PageSize())
			}
			return []rank.Fused{{
				Key:        k,
				Payload:    []byte(`{"maker":"DESMI"}`),
				RawText:    "Pump, Sea Water Cooling",
				FusedScore: 2.0 / 61.0,
				Rewrite:    1,
				Trigram:    rank.SignalHit{Rank: 1, Score: 0.82},
				Tokens:     rank.SignalHit{Rank: 1, Score: 2.4},
			}}, nil
		},
	}
	c := &Client{searchSvc: search}

	results, err := c.Search(context.Background(), "Y1", SearchQuery{
		Rewrites: []Rewrite{{Text: "seawater pump"}},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}

	got := results[0]
	if got.ObjectType != "part" || got.ObjectID != "pump-003" {
		t.Errorf("identity: got %s/%s", got.ObjectType, got.ObjectID)
	}
	if got.Rewrite != 1 {
		t.Errorf("winning rewrite: got %d", got.Rewrite)
	}
	if got.Trigram == nil || got.Trigram.Score != 0.82 {
		t.Errorf("trigram hit: got %+v", got.Trigram)
	}
	if got.Vector != nil {
		t.Errorf("vector hit should be nil, got %+v", got.Vector)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	c := &Client{searchSvc: &mockSearch{}}

	_, err := c.Search(context.Background(), "Y1", SearchQuery{})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearch_InvalidScope(t *testing.T) {
	c := &Client{searchSvc: &mockSearch{}}

	_, err := c.Search(context.Background(), "", SearchQuery{
		Rewrites: []Rewrite{{Text: "pump"}},
	})
	if !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestUpsertAndDelete_Forwarded(t *testing.T) {
	ingest := &mockIngest{}
	c := &Client{ingestSvc: ingest}

	if err := c.Upsert(context.Background(), "Y1", "part", "pump-003", ObjectUpsert{
		RawText: "Pump, Sea Water Cooling",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := c.Delete(context.Background(), "Y1", "part", "pump-003"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if ingest.upserts != 1 || ingest.deletes != 1 {
		t.Errorf("calls: upserts=%d deletes=%d", ingest.upserts, ingest.deletes)
	}
}

func TestUpsert_ErrorWrapped(t *testing.T) {
	ingest := &mockIngest{err: domain.ErrInvalidObject}
	c := &Client{ingestSvc: ingest}

	err := c.Upsert(context.Background(), "Y1", "part", "pump-003", ObjectUpsert{})
	if !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("expected ErrInvalidObject, got %v", err)
	}
}

func TestRecordClick_Forwarded(t *testing.T) {
	tel := &mockTelemetry{}
	c := &Client{telemetrySvc: tel}

	err := c.RecordClick(context.Background(), "Y1", Click{
		QueryText:  "desal unit",
		ObjectType: "equipment",
		ObjectID:   "eq-778",
		Rank:       2,
	})
	if err != nil {
		t.Fatalf("record click: %v", err)
	}
	if tel.tenant != "Y1" || tel.rank != 2 {
		t.Errorf("forwarded: tenant=%q rank=%d", tel.tenant, tel.rank)
	}
}

func TestRunLearningPass(t *testing.T) {
	learning := &mockLearning{}
	c := &Client{learningSvc: learning}

	if err := c.RunLearningPass(context.Background()); err != nil {
		t.Fatalf("learning pass: %v", err)
	}
	if learning.runs != 1 {
		t.Errorf("runs: got %d, want 1", learning.runs)
	}
}

func TestHealth_Converts(t *testing.T) {
	c := &Client{healthSvc: &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"database":  healthuc.CheckOK,
			"embedding": healthuc.CheckError,
		},
	}}}

	hs := c.Health(context.Background())
	if hs.Status != "degraded" {
		t.Errorf("status: got %q", hs.Status)
	}
	if hs.Checks["embedding"] != "error" {
		t.Errorf("embedding check: got %q", hs.Checks["embedding"])
	}
}
