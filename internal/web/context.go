package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/pima/internal/core"
	mw "github.com/JonMunkholm/pima/internal/web/middleware"
)

// WithRequestMetadata records the client IP and User-Agent for import logs.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, mw.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
