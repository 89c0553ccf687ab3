package auth

import (
	"context"

	"neotrade/src/model"
)

type contextKey string

const IdentityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

func GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(model.Identity)
	if !ok || !id.Resolved() {
		return model.Identity{}, false
	}
	return id, true
}
