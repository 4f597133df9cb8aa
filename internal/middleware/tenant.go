// Package middleware provides HTTP middleware shared across the API surface.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultTenantID is the single-operator default used when no X-Tenant-ID
// header is set. Every store query is scoped by this value; the orchestrator
// never reads tenant identity from ambient global state.
const DefaultTenantID = "00000000-0000-0000-0000-000000000000"

const headerTenantID = "X-Tenant-ID"

type tenantCtxKey struct{}

// TenantID extracts the tenant ID from the X-Tenant-ID header and stores it
// in the request context, falling back to DefaultTenantID. The tenant column
// is a UUID, so a malformed header is rejected here instead of failing every
// query behind it.
func TenantID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := r.Header.Get(headerTenantID)
		if tid == "" {
			tid = DefaultTenantID
		} else if _, err := uuid.Parse(tid); err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tid)))
	})
}

// WithTenant returns a context carrying the given tenant ID. Used by the
// sweep loop and by tests, which have no inbound request.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenantID)
}

// TenantIDFromContext returns the tenant ID stored in ctx, or
// DefaultTenantID if absent.
func TenantIDFromContext(ctx context.Context) string {
	if tid, ok := ctx.Value(tenantCtxKey{}).(string); ok && tid != "" {
		return tid
	}
	return DefaultTenantID
}
