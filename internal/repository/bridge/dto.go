package bridge

import (
	"strconv"
	"time"

	dombridge "github.com/harborline/catalogsearch/internal/domain/bridge"
)

// Hash field names of a bridge row.
const (
	fieldTenant     = "tenant_id"
	fieldObjectType = "object_type"
	fieldObjectID   = "object_id"
	fieldQuery      = "query"
	fieldClickCount = "click_count"
	fieldApplied    = "applied"
	fieldAppliedAt  = "applied_at"
	fieldFirstSeen  = "first_seen_at"
	fieldLastSeen   = "last_seen_at"
)

func fieldsFromBridge(b dombridge.Bridge) map[string]string {
	return map[string]string{
		fieldTenant:     b.Tenant(),
		fieldObjectType: b.ObjectType(),
		fieldObjectID:   b.ObjectID(),
		fieldQuery:      b.Query(),
		fieldClickCount: strconv.Itoa(b.ClickCount()),
		fieldApplied:    strconv.FormatBool(b.Applied()),
		fieldAppliedAt:  formatTime(b.AppliedAt()),
		fieldFirstSeen:  formatTime(b.FirstSeenAt()),
		fieldLastSeen:   formatTime(b.LastSeenAt()),
	}
}

func bridgeFromFields(m map[string]string) dombridge.Bridge {
	count, _ := strconv.Atoi(m[fieldClickCount])
	applied, _ := strconv.ParseBool(m[fieldApplied])
	return dombridge.Reconstruct(
		m[fieldTenant],
		m[fieldObjectType],
		m[fieldObjectID],
		m[fieldQuery],
		count,
		applied,
		parseTime(m[fieldAppliedAt]),
		parseTime(m[fieldFirstSeen]),
		parseTime(m[fieldLastSeen]),
	)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
