package auth

import "context"

type contextKey string

const authContextKey contextKey = "assistant_auth"

// Info identifies the caller for logging and rate limiting.
type Info struct {
	KeyName string
}

func ContextWithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, authContextKey, info)
}

func InfoFromContext(ctx context.Context) (*Info, bool) {
	info, ok := ctx.Value(authContextKey).(*Info)
	return info, ok
}
