// Package chainctx provides transport-independent context accessors for
// ledger-scoped values: the submitting account, the current block height,
// and the current ledger time.
//
// Middleware (or the block scheduler) sets these; services read them. The
// package is free of net/http so services import only what they need.
//
// Usage in services (read values):
//
//	caller := chainctx.Caller(ctx)
//	now := chainctx.Moment(ctx)
//	block := chainctx.Block(ctx)
//
// Usage in tests (inject values):
//
//	ctx = chainctx.WithMoment(ctx, fixedMoment)
//	ctx = chainctx.WithBlock(ctx, 42)
package chainctx

import (
	"context"
	"time"

	"credreg/pkg/domain"
)

type (
	callerKey    struct{}
	blockKey     struct{}
	momentKey    struct{}
	requestIDKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyCaller    = callerKey{}
	ContextKeyBlock     = blockKey{}
	ContextKeyMoment    = momentKey{}
	ContextKeyRequestID = requestIDKey{}
)

// Caller retrieves the authenticated submitting account from the context.
// Returns the zero value if not set.
func Caller(ctx context.Context) domain.AccountID {
	if caller, ok := ctx.Value(ContextKeyCaller).(domain.AccountID); ok {
		return caller
	}
	return ""
}

// WithCaller injects the submitting account into the context.
func WithCaller(ctx context.Context, caller domain.AccountID) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// Block retrieves the current block height from the context. Returns 0 if
// not set; DID expiry semantics treat height 0 as "before any block".
func Block(ctx context.Context) domain.BlockNumber {
	if block, ok := ctx.Value(ContextKeyBlock).(domain.BlockNumber); ok {
		return block
	}
	return 0
}

// WithBlock injects the current block height into the context.
func WithBlock(ctx context.Context, block domain.BlockNumber) context.Context {
	return context.WithValue(ctx, ContextKeyBlock, block)
}

// Moment retrieves the ledger time from the context. Falls back to wall
// clock for non-ledger contexts (CLI, ad-hoc tests); transaction paths
// always have it stamped by middleware.
func Moment(ctx context.Context) domain.Moment {
	if m, ok := ctx.Value(ContextKeyMoment).(domain.Moment); ok {
		return m
	}
	return domain.MomentFromTime(time.Now())
}

// WithMoment injects a ledger time into the context.
func WithMoment(ctx context.Context, m domain.Moment) context.Context {
	return context.WithValue(ctx, ContextKeyMoment, m)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}
