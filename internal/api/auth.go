package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnknownToken is returned by resolvers for tokens that map to no tenant.
var ErrUnknownToken = errors.New("unknown token")

// TenantResolver maps a bearer token to a tenant id. The CRM's session layer
// implements this in production; StaticTokenResolver covers standalone
// deployments and tests.
type TenantResolver interface {
	TenantForToken(ctx context.Context, token string) (string, error)
}

// StaticTokenResolver resolves tenants from a fixed token map.
type StaticTokenResolver struct {
	tokens map[string]string
}

// NewStaticTokenResolver copies the supplied token → tenant map.
func NewStaticTokenResolver(tokens map[string]string) *StaticTokenResolver {
	out := make(map[string]string, len(tokens))
	for token, tenant := range tokens {
		if token != "" && tenant != "" {
			out[token] = tenant
		}
	}
	return &StaticTokenResolver{tokens: out}
}

// TenantForToken implements TenantResolver.
func (r *StaticTokenResolver) TenantForToken(_ context.Context, token string) (string, error) {
	tenant, ok := r.tokens[token]
	if !ok {
		return "", ErrUnknownToken
	}
	return tenant, nil
}

type contextKey string

const tenantContextKey contextKey = "tenant_id"

// TenantFromContext returns the tenant id stored by the auth middleware.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenant, ok := ctx.Value(tenantContextKey).(string)
	return tenant, ok && tenant != ""
}

// RequireTenant authenticates the bearer token and stores the resolved
// tenant id in the request context. Missing or unknown tokens yield 401.
func RequireTenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
				return
			}

			tenant, err := resolver.TenantForToken(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid bearer token", "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
