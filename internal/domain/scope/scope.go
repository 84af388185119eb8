// Package scope holds the tenant read-scope value object.
package scope

import (
	"fmt"

	"github.com/harborline/catalogsearch/internal/domain"
)

// Scope declares which index rows a read may see.
// Tenant is mandatory; org and object types narrow further.
// No read path returns rows outside its Scope.
type Scope struct {
	tenant string
	orgID  string
	types  []string
}

// New validates and creates a Scope.
func New(tenant, orgID string, objectTypes []string) (Scope, error) {
	if tenant == "" {
		return Scope{}, fmt.Errorf("%w: tenant is required", domain.ErrInvalidScope)
	}
	types := make([]string, 0, len(objectTypes))
	for _, t := range objectTypes {
		if t == "" {
			return Scope{}, fmt.Errorf("%w: object type filter entries must be non-empty", domain.ErrInvalidScope)
		}
		types = append(types, t)
	}
	return Scope{tenant: tenant, orgID: orgID, types: types}, nil
}

// Tenant returns the tenant the scope is bound to.
func (s *Scope) Tenant() string { return s.tenant }

// OrgID returns the organization narrowing, empty for tenant-wide reads.
func (s *Scope) OrgID() string { return s.orgID }

// Types returns the object-type allow-list, empty for all types.
func (s *Scope) Types() []string { return s.types }

// AllowsType reports whether the scope admits the given object type.
func (s *Scope) AllowsType(objectType string) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, t := range s.types {
		if t == objectType {
			return true
		}
	}
	return false
}

// AllowsOrg reports whether the scope admits a row owned by orgID.
// Tenant-global rows (empty org) are visible to every org in the tenant.
func (s *Scope) AllowsOrg(orgID string) bool {
	if s.orgID == "" || orgID == "" {
		return true
	}
	return s.orgID == orgID
}
