// Package telemetry records click feedback from search result pages.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/click"
)

// ClickRecorder is the click store surface telemetry needs.
type ClickRecorder interface {
	Record(ctx context.Context, e click.Event) (bool, error)
}

// Service validates and records click events.
type Service struct {
	clicks ClickRecorder
	clock  func() time.Time
}

// New creates a telemetry service.
func New(clicks ClickRecorder) *Service {
	return &Service{clicks: clicks, clock: time.Now}
}

// Record stores one click. A missing session ID gets a minted UUID so
// the event identity stays total; a duplicate identity is a silent
// success, the first event wins.
func (s *Service) Record(
	ctx context.Context,
	tenant, orgID, userID, sessionID, queryText, objectType, objectID string,
	rank int, fusedScore float64, clickedAt time.Time,
) error {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if clickedAt.IsZero() {
		clickedAt = s.clock().UTC()
	}
	e, err := click.New(tenant, orgID, userID, sessionID, queryText, objectType, objectID, rank, fusedScore, clickedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidClick, err)
	}
	if _, err := s.clicks.Record(ctx, e); err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}
