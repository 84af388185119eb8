package click

import (
	"time"

	"github.com/harborline/catalogsearch/internal/domain/click"
)

// eventDTO is the stored JSON form of a click event.
type eventDTO struct {
	Tenant     string    `json:"tenant_id"`
	OrgID      string    `json:"org_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	SessionID  string    `json:"search_session_id"`
	QueryText  string    `json:"query_text"`
	ObjectType string    `json:"object_type"`
	ObjectID   string    `json:"object_id"`
	Rank       int       `json:"result_rank"`
	FusedScore float64   `json:"fused_score"`
	ClickedAt  time.Time `json:"clicked_at"`
}

func toDTO(e click.Event) eventDTO {
	return eventDTO{
		Tenant:     e.Tenant(),
		OrgID:      e.OrgID(),
		UserID:     e.UserID(),
		SessionID:  e.SessionID(),
		QueryText:  e.QueryText(),
		ObjectType: e.ObjectType(),
		ObjectID:   e.ObjectID(),
		Rank:       e.Rank(),
		FusedScore: e.FusedScore(),
		ClickedAt:  e.ClickedAt(),
	}
}

func (d eventDTO) toDomain() click.Event {
	return click.Reconstruct(
		d.Tenant, d.OrgID, d.UserID, d.SessionID, d.QueryText,
		d.ObjectType, d.ObjectID, d.Rank, d.FusedScore, d.ClickedAt,
	)
}
