// Package click holds the append-only click telemetry event.
package click

import (
	"fmt"
	"time"
)

// Event records which object a user selected for a query.
// Identity is (session, object type, object id); a second write with the
// same identity is a no-op, never an error.
type Event struct {
	tenant     string
	orgID      string
	userID     string
	sessionID  string
	queryText  string
	objectType string
	objectID   string
	rank       int
	fusedScore float64
	clickedAt  time.Time
}

// New validates and creates an Event.
func New(
	tenant, orgID, userID, sessionID, queryText, objectType, objectID string,
	rank int, fusedScore float64, clickedAt time.Time,
) (Event, error) {
	if tenant == "" {
		return Event{}, fmt.Errorf("tenant is required")
	}
	if sessionID == "" {
		return Event{}, fmt.Errorf("session id is required")
	}
	if queryText == "" {
		return Event{}, fmt.Errorf("query text is required")
	}
	if objectType == "" || objectID == "" {
		return Event{}, fmt.Errorf("object type and id are required")
	}
	if rank < 1 {
		return Event{}, fmt.Errorf("rank must be >= 1")
	}
	if clickedAt.IsZero() {
		clickedAt = time.Now().UTC()
	}
	return Event{
		tenant:     tenant,
		orgID:      orgID,
		userID:     userID,
		sessionID:  sessionID,
		queryText:  queryText,
		objectType: objectType,
		objectID:   objectID,
		rank:       rank,
		fusedScore: fusedScore,
		clickedAt:  clickedAt,
	}, nil
}

// Reconstruct rebuilds an Event from storage without validation.
func Reconstruct(
	tenant, orgID, userID, sessionID, queryText, objectType, objectID string,
	rank int, fusedScore float64, clickedAt time.Time,
) Event {
	return Event{
		tenant: tenant, orgID: orgID, userID: userID, sessionID: sessionID,
		queryText: queryText, objectType: objectType, objectID: objectID,
		rank: rank, fusedScore: fusedScore, clickedAt: clickedAt,
	}
}

// Tenant returns the tenant the click belongs to.
func (e *Event) Tenant() string { return e.tenant }

// OrgID returns the organization of the clicking user.
func (e *Event) OrgID() string { return e.orgID }

// UserID returns the clicking user.
func (e *Event) UserID() string { return e.userID }

// SessionID returns the search session the click happened in.
func (e *Event) SessionID() string { return e.sessionID }

// QueryText returns the query the user typed.
func (e *Event) QueryText() string { return e.queryText }

// ObjectType returns the selected object's type.
func (e *Event) ObjectType() string { return e.objectType }

// ObjectID returns the selected object's id.
func (e *Event) ObjectID() string { return e.objectID }

// Rank returns the 1-based position the result was shown at.
func (e *Event) Rank() int { return e.rank }

// FusedScore returns the fused score the result carried when clicked.
func (e *Event) FusedScore() float64 { return e.fusedScore }

// ClickedAt returns the selection time.
func (e *Event) ClickedAt() time.Time { return e.clickedAt }
