package provider

import (
	"context"
	"net/http"
	"strings"
)

type callerTokenKey struct{}

// WithCallerToken attaches a caller supplied bearer token to ctx. The
// Client sends it to the provider in place of its configured API key.
func WithCallerToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, callerTokenKey{}, token)
}

// CallerToken returns the token attached by WithCallerToken, if any.
func CallerToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(callerTokenKey{}).(string)
	return token, ok && token != ""
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	const prefix = "bearer "
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
