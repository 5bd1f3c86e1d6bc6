package services

import "context"

type contextKey string

const (
	siteKey    contextKey = "site"
	batchIDKey contextKey = "batch_id"
)

// WithSite annotates context with the active despatch site name.
func WithSite(ctx context.Context, site string) context.Context {
	if site == "" {
		return ctx
	}
	return context.WithValue(ctx, siteKey, site)
}

// SiteFromContext returns the site name if present.
func SiteFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(siteKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBatchID annotates context with the submission correlation identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the submission correlation identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
