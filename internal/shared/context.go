package shared

import "context"

type tenantContextKey struct{}

type actorContextKey struct{}

// ContextWithTenant stores the tenant id in context.
func ContextWithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// TenantFromContext extracts the tenant id from context, zero when absent.
func TenantFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(tenantContextKey{}).(int64)
	return id
}

// ContextWithActor stores the acting user id in context.
func ContextWithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFromContext extracts the acting user id from context, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorContextKey{}).(int64)
	return id
}
