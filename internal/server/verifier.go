package server

import (
	"context"

	"github.com/geosleuth/geocase/internal/realtime"
)

// storeVerifier adapts the store's token lookup to the realtime layer's
// credential interface.
type storeVerifier struct {
	store Store
}

func (v storeVerifier) Verify(ctx context.Context, token string) (realtime.Identity, error) {
	return v.store.IdentityFromToken(ctx, token)
}
