package embedjob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/job"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/textproc"
)

// --- Mocks ---

type mockQueue struct {
	jobs []job.Job

	completed  []object.Key
	failed     []object.Key
	failStatus job.Status
}

func (m *mockQueue) Dequeue(_ context.Context, _ time.Time) (job.Job, error) {
	if len(m.jobs) == 0 {
		return job.Job{}, domain.ErrNoQueuedJobs
	}
	j := m.jobs[0]
	m.jobs = m.jobs[1:]
	return j, nil
}

func (m *mockQueue) Complete(_ context.Context, key object.Key, _ time.Time) error {
	m.completed = append(m.completed, key)
	return nil
}

func (m *mockQueue) Fail(_ context.Context, key object.Key, _ error, _ int, _ time.Time) (job.Status, error) {
	m.failed = append(m.failed, key)
	if m.failStatus == "" {
		return job.StatusQueued, nil
	}
	return m.failStatus, nil
}

type setCall struct {
	key         object.Key
	vector      []float32
	embeddingFP string
}

type mockIndex struct {
	objects map[object.Key]object.Object

	sets         []setCall
	markedFailed []object.Key
}

func (m *mockIndex) Get(_ context.Context, key object.Key) (object.Object, error) {
	obj, ok := m.objects[key]
	if !ok {
		return object.Object{}, domain.ErrObjectNotFound
	}
	return obj, nil
}

func (m *mockIndex) SetEmbedding(_ context.Context, key object.Key, vector []float32, embeddingFP string) error {
	m.sets = append(m.sets, setCall{key, vector, embeddingFP})
	return nil
}

func (m *mockIndex) MarkEmbeddingFailed(_ context.Context, key object.Key) error {
	m.markedFailed = append(m.markedFailed, key)
	return nil
}

type mockEmbedder struct {
	vector []float32
	errs   []error // consumed per call; nil entry = success
	calls  int
	texts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
	}
	return domain.EmbeddingResult{Embedding: m.vector, TotalTokens: 3}, nil
}

// --- Fixtures ---

func pendingObject(key object.Key, rawText, learned string) object.Object {
	return object.Reconstruct(
		key, "", rawText, nil,
		textproc.DeriveTokens(rawText, learned), nil,
		learned, time.Time{},
		textproc.Fingerprint(rawText, learned), "", object.EmbeddingPending, time.Time{},
	)
}

func newWorker(q *mockQueue, idx *mockIndex, emb *mockEmbedder) *Worker {
	return New(q, idx, emb, nil, Config{RetryBaseDelay: time.Millisecond}, nil)
}

func queuedJob(key object.Key) job.Job {
	return job.New(key, 5, time.Now())
}

func TestWorker_EmbedsAndCompletes(t *testing.T) {
	key := object.Key{Tenant: "Y1", Type: "part", ID: "P1"}
	q := &mockQueue{jobs: []job.Job{queuedJob(key)}}
	idx := &mockIndex{objects: map[object.Key]object.Object{
		key: pendingObject(key, "Fuel Filter Element", "racor filter"),
	}}
	emb := &mockEmbedder{vector: []float32{0.1, 0.2}}

	dispatched, err := newWorker(q, idx, emb).dispatchNext(context.Background())
	if err != nil || !dispatched {
		t.Fatalf("dispatchNext: dispatched=%v err=%v", dispatched, err)
	}
	if len(idx.sets) != 1 {
		t.Fatalf("expected 1 vector write, got %d", len(idx.sets))
	}
	if idx.sets[0].embeddingFP != textproc.Fingerprint("Fuel Filter Element", "racor filter") {
		t.Fatal("embedding fingerprint must snapshot the content fingerprint")
	}
	if emb.texts[0] != "Fuel Filter Element racor filter" {
		t.Fatalf("embedded text %q must include learned vocabulary", emb.texts[0])
	}
	if len(q.completed) != 1 {
		t.Fatal("job must complete after a stored vector")
	}
}

func TestWorker_EmptyQueue(t *testing.T) {
	q := &mockQueue{}
	dispatched, err := newWorker(q, &mockIndex{}, &mockEmbedder{}).dispatchNext(context.Background())
	if err != nil {
		t.Fatalf("dispatchNext: %v", err)
	}
	if dispatched {
		t.Fatal("empty queue must not dispatch")
	}
}

func TestWorker_StaleJobCompletesWithoutEmbedding(t *testing.T) {
	key := object.Key{Tenant: "Y1", Type: "part", ID: "P1"}
	fp := textproc.Fingerprint("Fuel Filter Element", "")
	current := object.Reconstruct(
		key, "", "Fuel Filter Element", nil,
		textproc.DeriveTokens("Fuel Filter Element", ""), []float32{0.5},
		"", time.Time{}, fp, fp, object.EmbeddingDone, time.Time{},
	)
	q := &mockQueue{jobs: []job.Job{queuedJob(key)}}
	idx := &mockIndex{objects: map[object.Key]object.Object{key: current}}
	emb := &mockEmbedder{}

	if _, err := newWorker(q, idx, emb).dispatchNext(context.Background()); err != nil {
		t.Fatalf("dispatchNext: %v", err)
	}
	if emb.calls != 0 {
		t.Fatal("job covering a current vector must not call the provider")
	}
	if len(q.completed) != 1 {
		t.Fatal("stale job must still complete")
	}
}

func TestWorker_DeletedObjectCompletes(t *testing.T) {
	key := object.Key{Tenant: "Y1", Type: "part", ID: "gone"}
	q := &mockQueue{jobs: []job.Job{queuedJob(key)}}
	emb := &mockEmbedder{}

	if _, err := newWorker(q, &mockIndex{}, emb).dispatchNext(context.Background()); err != nil {
		t.Fatalf("dispatchNext: %v", err)
	}
	if emb.calls != 0 || len(q.completed) != 1 {
		t.Fatal("job for a deleted row must complete without embedding")
	}
}

func TestWorker_TransientProviderErrorRetriesInline(t *testing.T) {
	key := object.Key{Tenant: "Y1", Type: "part", ID: "P1"}
	q := &mockQueue{jobs: []job.Job{queuedJob(key)}}
	idx := &mockIndex{objects: map[object.Key]object.Object{
		key: pendingObject(key, "Fuel Filter Element", ""),
	}}
	emb := &mockEmbedder{
		vector: []float32{0.1},
		errs:   []error{errors.New("timeout"), nil},
	}

	if _, err := newWorker(q, idx, emb).dispatchNext(context.Background()); err != nil {
		t.Fatalf("dispatchNext: %v", err)
	}
	if emb.calls != 2 {
		t.Fatalf("expected retry then success, calls=%d", emb.calls)
	}
	if len(q.completed) != 1 || len(q.failed) != 0 {
		t.Fatal("recovered job must complete, not fail")
	}
}

func TestWorker_ExhaustedRetriesFailJob(t *testing.T) {
	key := object.Key{Tenant: "Y1", Type: "part", ID: "P1"}
	q := &mockQueue{
		jobs:       []job.Job{queuedJob(key)},
		failStatus: job.StatusFailed,
	}
	idx := &mockIndex{objects: map[object.Key]object.Object{
		key: pendingObject(key, "Fuel Filter Element", ""),
	}}
	down := errors.New("provider down")
	emb := &mockEmbedder{errs: []error{down, down, down}}

	if _, err := newWorker(q, idx, emb).dispatchNext(context.Background()); err != nil {
		t.Fatalf("dispatchNext: %v", err)
	}
	if len(q.failed) != 1 {
		t.Fatal("exhausted retries must fail the job")
	}
	if len(idx.markedFailed) != 1 {
		t.Fatal("parked job must flip the row to failed")
	}
	if len(idx.sets) != 0 {
		t.Fatal("no vector may be written on failure")
	}
}
