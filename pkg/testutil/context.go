package testutil

import (
	"net/http"

	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
)

// WithCaller binds the submitting account to the request context,
// simulating what the auth middleware does for authenticated requests.
func WithCaller(req *http.Request, caller domain.AccountID) *http.Request {
	return req.WithContext(chainctx.WithCaller(req.Context(), caller))
}

// WithChain stamps a ledger position onto the request context, simulating
// the chain-stamping middleware.
func WithChain(req *http.Request, block domain.BlockNumber, moment domain.Moment) *http.Request {
	ctx := chainctx.WithBlock(req.Context(), block)
	ctx = chainctx.WithMoment(ctx, moment)
	return req.WithContext(ctx)
}
