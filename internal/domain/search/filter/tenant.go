package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/rfprag/internal/domain"
)

// TenantKey is the metadata field every query is scoped by.
const TenantKey = "tenant_id"

// ForTenant builds the mandatory tenant-scoped filter: an exact match on
// TenantKey followed by the extra must conditions.
//
// The tenant id is carried as an opaque literal; drivers render it with
// equality semantics only. A blank id fails with *domain.InvalidTenantError,
// and extra conditions may not target TenantKey.
func ForTenant(tenantID string, extra ...Condition) (Expression, error) {
	if strings.TrimSpace(tenantID) == "" {
		return Expression{}, domain.NewInvalidTenant("tenant id is required")
	}

	tenant := Condition{key: TenantKey, match: tenantID}
	must := make([]Condition, 0, len(extra)+1)
	must = append(must, tenant)
	for _, c := range extra {
		if c.key == TenantKey {
			return Expression{}, fmt.Errorf("%w: %s is reserved", domain.ErrInvalidRequest, TenantKey)
		}
		must = append(must, c)
	}

	return NewExpression(must, nil, nil)
}
