package http

import (
	"context"

	"github.com/proofile/authcore/internal/auth/domain"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

func contextWithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the verified identity attached by the authn
// middleware, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(domain.Identity)
	return id, ok
}
