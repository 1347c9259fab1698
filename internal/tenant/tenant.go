// Package tenant carries the caller's tenant identity through a request context.
package tenant

import (
	"context"
	"errors"
)

// SystemUser is recorded as the author of rows written on behalf of an
// integration rather than a logged in user.
const SystemUser = "system"

var ErrMissingTenant = errors.New("tenant missing from context")

type Info struct {
	TenantID     string
	LoggedInUser string
}

type ctxKey struct{}

func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext returns the tenant of the request. ok is false when no tenant was set.
func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(ctxKey{}).(Info)
	if !ok || info.TenantID == "" {
		return Info{}, false
	}
	return info, true
}

// Require is FromContext for callers that cannot proceed without a tenant.
func Require(ctx context.Context) (Info, error) {
	info, ok := FromContext(ctx)
	if !ok {
		return Info{}, ErrMissingTenant
	}
	if info.LoggedInUser == "" {
		info.LoggedInUser = SystemUser
	}
	return info, nil
}
