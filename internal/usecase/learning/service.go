// Package learning implements the counterfactual loop: clicked search
// results become query-object bridges, and bridges that cross the click
// threshold feed their query terms back into the object's learned
// vocabulary.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/bridge"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/metrics"
	"github.com/harborline/catalogsearch/internal/textproc"
)

// ApplyPriority is the queue priority for learning-triggered embedding
// jobs. Below ingest's so learned vocabulary embeds first.
const ApplyPriority = 5

// Tuning defaults.
const (
	DefaultLookback  = 30 * 24 * time.Hour
	DefaultMinClicks = 3
)

// Config tunes the learning loop.
type Config struct {
	Lookback  time.Duration // click aggregation window
	MinClicks int           // bridge application threshold
}

func (c Config) withDefaults() Config {
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	if c.MinClicks <= 0 {
		c.MinClicks = DefaultMinClicks
	}
	return c
}

// Service aggregates clicks into bridges and applies matured bridges to
// the index. Every step is idempotent, so overlapping passes are safe
// without locks.
type Service struct {
	clicks  ClickSource
	bridges BridgeStore
	index   IndexStore
	jobs    JobEnqueuer
	cfg     Config
	clock   func() time.Time
	log     *zap.Logger
}

// New creates a learning service.
func New(clicks ClickSource, bridges BridgeStore, index IndexStore, jobs JobEnqueuer, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		clicks:  clicks,
		bridges: bridges,
		index:   index,
		jobs:    jobs,
		cfg:     cfg.withDefaults(),
		clock:   time.Now,
		log:     log,
	}
}

// RunOnce executes one full aggregation-and-apply pass over every
// tenant. A failing tenant is logged and skipped; the pass never
// crosses tenant boundaries.
func (s *Service) RunOnce(ctx context.Context) error {
	tenants, err := s.index.Tenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Aggregate(ctx, tenant); err != nil {
			s.log.Error("click aggregation failed", zap.String("tenant", tenant), zap.Error(err))
			continue
		}
		if err := s.Apply(ctx, tenant); err != nil {
			s.log.Error("bridge application failed", zap.String("tenant", tenant), zap.Error(err))
		}
	}
	return nil
}

// bridgeIdentity groups clicks within one tenant.
type bridgeIdentity struct {
	objectType string
	objectID   string
	query      string
}

// Aggregate folds the tenant's clicks inside the lookback window into
// bridges. Counts are monotonic per window snapshot: the store merge
// never lets a bridge's count go down, so re-running over the same
// clicks is a no-op.
func (s *Service) Aggregate(ctx context.Context, tenant string) error {
	cutoff := s.clock().Add(-s.cfg.Lookback)
	events, err := s.clicks.ListSince(ctx, tenant, cutoff)
	if err != nil {
		return fmt.Errorf("list clicks: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	type window struct {
		count     int
		firstSeen time.Time
		lastSeen  time.Time
	}
	groups := make(map[bridgeIdentity]*window)
	for i := range events {
		query := bridge.NormalizeQuery(events[i].QueryText())
		if query == "" {
			continue
		}
		id := bridgeIdentity{
			objectType: events[i].ObjectType(),
			objectID:   events[i].ObjectID(),
			query:      query,
		}
		w := groups[id]
		if w == nil {
			w = &window{firstSeen: events[i].ClickedAt(), lastSeen: events[i].ClickedAt()}
			groups[id] = w
		}
		w.count++
		if events[i].ClickedAt().Before(w.firstSeen) {
			w.firstSeen = events[i].ClickedAt()
		}
		if events[i].ClickedAt().After(w.lastSeen) {
			w.lastSeen = events[i].ClickedAt()
		}
	}

	ids := make([]bridgeIdentity, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].objectType != ids[j].objectType {
			return ids[i].objectType < ids[j].objectType
		}
		if ids[i].objectID != ids[j].objectID {
			return ids[i].objectID < ids[j].objectID
		}
		return ids[i].query < ids[j].query
	})

	for _, id := range ids {
		w := groups[id]
		b, err := bridge.New(tenant, id.objectType, id.objectID, id.query, w.count, w.firstSeen, w.lastSeen)
		if err != nil {
			return fmt.Errorf("build bridge: %w", err)
		}
		if _, err := s.bridges.Upsert(ctx, b); err != nil {
			return fmt.Errorf("upsert bridge: %w", err)
		}
		metrics.LearningBridgesTotal.WithLabelValues("aggregated").Inc()
	}
	return nil
}

// Apply feeds every matured unapplied bridge into its object's learned
// vocabulary. The index write is conditional, the job enqueue fires
// only when the content fingerprint moved, and the bridge is marked
// applied either way, so a crashed pass simply redoes harmless work.
func (s *Service) Apply(ctx context.Context, tenant string) error {
	matured, err := s.bridges.ListUnapplied(ctx, tenant, s.cfg.MinClicks)
	if err != nil {
		return fmt.Errorf("list unapplied bridges: %w", err)
	}

	now := s.clock()
	for i := range matured {
		b := matured[i]
		key := object.Key{Tenant: b.Tenant(), Type: b.ObjectType(), ID: b.ObjectID()}

		obj, err := s.index.Get(ctx, key)
		if errors.Is(err, domain.ErrObjectNotFound) {
			// Object retracted since the clicks happened. Retire the
			// bridge so the pass stops revisiting it.
			if _, err := s.bridges.MarkApplied(ctx, b, now); err != nil {
				return fmt.Errorf("retire bridge for %s: %w", key, err)
			}
			metrics.LearningBridgesTotal.WithLabelValues("retired").Inc()
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}

		learned := mergeKeywords(obj.LearnedKeywords(), b.Query())
		tokens := textproc.DeriveTokens(obj.RawText(), learned)
		fp := textproc.Fingerprint(obj.RawText(), learned)

		applied, fpChanged, err := s.index.ApplyLearnedKeywords(ctx, key, learned, tokens, fp, now)
		if err != nil {
			return fmt.Errorf("apply keywords to %s: %w", key, err)
		}
		if fpChanged {
			if err := s.jobs.Enqueue(ctx, key, ApplyPriority, now); err != nil {
				return fmt.Errorf("enqueue embedding job for %s: %w", key, err)
			}
		}
		if _, err := s.bridges.MarkApplied(ctx, b, now); err != nil {
			return fmt.Errorf("mark bridge applied for %s: %w", key, err)
		}
		metrics.LearningBridgesTotal.WithLabelValues("applied").Inc()

		s.log.Info("bridge applied",
			zap.String("object", key.String()),
			zap.String("query", b.Query()),
			zap.Int("clicks", b.ClickCount()),
			zap.Bool("vocabulary_changed", applied),
		)
	}
	return nil
}

// mergeKeywords unions the existing learned vocabulary with the
// bridge's query terms. First occurrence wins, order is preserved.
func mergeKeywords(current, query string) string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, w := range strings.Fields(current) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	for _, w := range strings.Fields(query) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
