// Package retrieval implements fusion search: up to three query rewrites,
// each probed by three independent signals, merged with reciprocal rank
// fusion into one ranked page.
package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/domain/query"
	"github.com/harborline/catalogsearch/internal/domain/rank"
	"github.com/harborline/catalogsearch/internal/domain/scope"
	"github.com/harborline/catalogsearch/internal/metrics"
)

// Tuning defaults. rrfK follows Cormack et al. 2009.
const (
	DefaultSignalLimit  = 100
	DefaultTrigramFloor = 0.15
	DefaultRRFK         = 60
)

// Config tunes the fusion engine.
type Config struct {
	SignalLimit  int     // per-signal candidate cap
	TrigramFloor float64 // minimum trigram similarity
	RRFK         int     // RRF smoothing constant
}

func (c Config) withDefaults() Config {
	if c.SignalLimit <= 0 {
		c.SignalLimit = DefaultSignalLimit
	}
	if c.TrigramFloor <= 0 {
		c.TrigramFloor = DefaultTrigramFloor
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
	return c
}

// Service runs fusion retrieval requests.
type Service struct {
	index  SignalSearcher
	reader ObjectReader
	pool   *ants.Pool
	cfg    Config
	log    *zap.Logger
}

// New creates a retrieval service. The pool is shared request-level
// fan-out capacity; it may be nil, in which case signal queries run
// sequentially.
func New(index SignalSearcher, reader ObjectReader, pool *ants.Pool, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{index: index, reader: reader, pool: pool, cfg: cfg.withDefaults(), log: log}
}

// signalSet holds one rewrite's three candidate lists.
type signalSet struct {
	trigram []rank.Candidate
	tokens  []rank.Candidate
	vector  []rank.Candidate
}

// Search executes the request against the scope and returns one fused
// page. A signal that fails is logged and treated as empty; the request
// only fails as a whole when the index itself is unreachable for every
// signal of every rewrite, which surfaces as an empty result instead.
func (s *Service) Search(ctx context.Context, sc scope.Scope, req query.Request) ([]rank.Fused, error) {
	rewrites := req.Rewrites()
	sets := make([]signalSet, len(rewrites))

	var wg sync.WaitGroup
	for i := range rewrites {
		if rewrites[i].IsBlank() {
			continue
		}
		rw := &rewrites[i]
		set := &sets[i]
		rewriteIdx := i + 1

		s.spawn(&wg, func() {
			hits, err := s.index.SearchTrigram(ctx, sc, rw.Text(), s.cfg.SignalLimit, s.cfg.TrigramFloor)
			if err != nil {
				s.warnSignal(rank.SignalTrigram, rewriteIdx, err)
				return
			}
			metrics.SearchSignalCandidates.WithLabelValues(rank.SignalTrigram.String()).Observe(float64(len(hits)))
			set.trigram = hits
		})
		s.spawn(&wg, func() {
			hits, err := s.index.SearchTokens(ctx, sc, rw.Text(), s.cfg.SignalLimit)
			if err != nil {
				s.warnSignal(rank.SignalTokens, rewriteIdx, err)
				return
			}
			metrics.SearchSignalCandidates.WithLabelValues(rank.SignalTokens.String()).Observe(float64(len(hits)))
			set.tokens = hits
		})
		if emb := rw.Embedding(); len(emb) > 0 {
			s.spawn(&wg, func() {
				hits, err := s.index.SearchVector(ctx, sc, emb, s.cfg.SignalLimit)
				if err != nil {
					s.warnSignal(rank.SignalVector, rewriteIdx, err)
					return
				}
				metrics.SearchSignalCandidates.WithLabelValues(rank.SignalVector.String()).Observe(float64(len(hits)))
				set.vector = hits
			})
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rowsByRewrite := make([][]rank.Row, 0, len(sets))
	for i := range sets {
		rowsByRewrite = append(rowsByRewrite,
			mergeRewrite(i+1, sets[i].trigram, sets[i].tokens, sets[i].vector))
	}

	page := fuse(rowsByRewrite, s.cfg.RRFK, req.PageSize())
	return s.hydrate(ctx, page)
}

// spawn runs fn on the shared pool, inline when the pool is absent or
// saturated.
func (s *Service) spawn(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	task := func() {
		defer wg.Done()
		fn()
	}
	if s.pool == nil {
		task()
		return
	}
	if err := s.pool.Submit(task); err != nil {
		task()
	}
}

func (s *Service) warnSignal(sig rank.Signal, rewriteIdx int, err error) {
	s.log.Warn("signal query failed, treating as empty",
		zap.Stringer("signal", sig),
		zap.Int("rewrite", rewriteIdx),
		zap.Error(err),
	)
}

// hydrate fills payload and raw text for the page rows. Objects deleted
// between the signal pass and hydration silently fall off the page.
func (s *Service) hydrate(ctx context.Context, page []fusedEntry) ([]rank.Fused, error) {
	if len(page) == 0 {
		return []rank.Fused{}, nil
	}
	keys := make([]object.Key, len(page))
	for i := range page {
		keys[i] = page[i].row.Key
	}
	objects, err := s.reader.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate page: %w", err)
	}
	byKey := make(map[object.Key]*object.Object, len(objects))
	for i := range objects {
		byKey[objects[i].Key()] = &objects[i]
	}

	out := make([]rank.Fused, 0, len(page))
	for _, e := range page {
		obj, ok := byKey[e.row.Key]
		if !ok {
			continue
		}
		out = append(out, rank.Fused{
			Key:        e.row.Key,
			Payload:    obj.Payload(),
			RawText:    obj.RawText(),
			FusedScore: e.score,
			Rewrite:    e.row.Rewrite,
			Trigram:    e.row.Trigram,
			Tokens:     e.row.Tokens,
			Vector:     e.row.Vector,
		})
	}
	return out, nil
}
