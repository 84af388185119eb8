package catalogsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborline/catalogsearch/internal/db"
	dbRedis "github.com/harborline/catalogsearch/internal/db/redis"
	"github.com/harborline/catalogsearch/internal/domain/query"
	"github.com/harborline/catalogsearch/internal/domain/rank"
	"github.com/harborline/catalogsearch/internal/domain/scope"
	bridgerepo "github.com/harborline/catalogsearch/internal/repository/bridge"
	clickrepo "github.com/harborline/catalogsearch/internal/repository/click"
	indexrepo "github.com/harborline/catalogsearch/internal/repository/index"
	jobsrepo "github.com/harborline/catalogsearch/internal/repository/jobs"
	healthuc "github.com/harborline/catalogsearch/internal/usecase/health"
	ingestuc "github.com/harborline/catalogsearch/internal/usecase/ingest"
	learninguc "github.com/harborline/catalogsearch/internal/usecase/learning"
	retrievaluc "github.com/harborline/catalogsearch/internal/usecase/retrieval"
	telemetryuc "github.com/harborline/catalogsearch/internal/usecase/telemetry"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultClickRetention   = 90 * 24 * time.Hour
)

// Internal interfaces so tests can substitute the services.
type searchUseCase interface {
	Search(ctx context.Context, sc scope.Scope, req query.Request) ([]rank.Fused, error)
}

type ingestUseCase interface {
	Upsert(ctx context.Context, tenant, objectType, objectID, orgID, rawText string, payload []byte) error
	Delete(ctx context.Context, tenant, objectType, objectID string) error
}

type telemetryUseCase interface {
	Record(
		ctx context.Context,
		tenant, orgID, userID, sessionID, queryText, objectType, objectID string,
		rank int, fusedScore float64, clickedAt time.Time,
	) error
}

type learningUseCase interface {
	RunOnce(ctx context.Context) error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the catalogsearch embedded client entry point.
type Client struct {
	store        db.Store
	searchSvc    searchUseCase
	ingestSvc    ingestUseCase
	telemetrySvc telemetryUseCase
	learningSvc  learningUseCase
	healthSvc    healthUseCase
	obs          *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("catalogsearch: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("catalogsearch: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("catalogsearch: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	retention := cfg.clickRetention
	if retention <= 0 {
		retention = defaultClickRetention
	}

	indexRepo := indexrepo.New(store)
	clickRepo := clickrepo.New(store, retention)
	bridgeRepo := bridgerepo.New(store)
	jobsRepo := jobsrepo.New(store)

	// No pool: signal fan-out runs inline, which keeps the embedded
	// client free of background goroutines.
	searchSvc := retrievaluc.New(indexRepo, indexRepo, nil, retrievaluc.Config{
		SignalLimit:  cfg.signalLimit,
		TrigramFloor: cfg.trigramFloor,
		RRFK:         cfg.rrfK,
	}, nil)
	ingestSvc := ingestuc.New(indexRepo, jobsRepo, nil)
	telemetrySvc := telemetryuc.New(clickRepo)
	learningSvc := learninguc.New(clickRepo, bridgeRepo, indexRepo, jobsRepo, learninguc.Config{
		Lookback:  cfg.lookback,
		MinClicks: cfg.minClicks,
	}, nil)
	healthSvc := healthuc.New(store, nil)

	return &Client{
		store:        store,
		searchSvc:    searchSvc,
		ingestSvc:    ingestSvc,
		telemetrySvc: telemetrySvc,
		learningSvc:  learningSvc,
		healthSvc:    healthSvc,
		obs:          obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// RunLearningPass aggregates recent clicks into bridges and applies the
// matured ones, for every tenant. The server runs this on a timer; an
// embedded client calls it explicitly.
func (c *Client) RunLearningPass(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("learning_pass", start, err) }()

	return c.learningSvc.RunOnce(ctx)
}
