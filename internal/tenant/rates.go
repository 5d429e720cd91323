package tenant

import "context"

// Resolver resolves effective rate settings per tenant.
type Resolver struct {
	repo SettingsPort
}

// NewResolver constructs Resolver.
func NewResolver(repo SettingsPort) *Resolver {
	return &Resolver{repo: repo}
}

// Rates returns the tenant's stored settings merged over the canonical
// defaults.
func (r *Resolver) Rates(ctx context.Context, tenantID int64) (RateSettings, error) {
	return Rates(ctx, r.repo, tenantID)
}
